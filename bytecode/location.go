package bytecode

import (
	"fmt"
	"sort"
)

// SourceLocation represents a position in script source.
type SourceLocation struct {
	Line   int // 1-based line number
	Column int // 1-based column number
}

// String returns a formatted string representation of the source location.
func (s SourceLocation) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsZero returns true if the location has not been set.
func (s SourceLocation) IsZero() bool {
	return s.Line == 0 && s.Column == 0
}

// SourceMap relates operations to source positions. Before assembly the keys
// are logical operation indices; after assembly they are word offsets from
// the stream header.
type SourceMap struct {
	entries map[int]SourceLocation
}

// NewSourceMap returns an empty source map.
func NewSourceMap() *SourceMap {
	return &SourceMap{entries: make(map[int]SourceLocation)}
}

// Add records the location for key, replacing any previous entry.
func (m *SourceMap) Add(key int, loc SourceLocation) {
	if m.entries == nil {
		m.entries = make(map[int]SourceLocation)
	}
	m.entries[key] = loc
}

// Get returns the location recorded for key.
func (m *SourceMap) Get(key int) (SourceLocation, bool) {
	loc, ok := m.entries[key]
	return loc, ok
}

// Len returns the number of entries.
func (m *SourceMap) Len() int {
	return len(m.entries)
}

// Keys returns all keys in ascending order.
func (m *SourceMap) Keys() []int {
	keys := make([]int, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Remap returns a new source map with every key passed through fn. Entries
// for which fn reports false are returned as the second result.
func (m *SourceMap) Remap(fn func(key int) (int, bool)) (*SourceMap, []int) {
	out := NewSourceMap()
	var missing []int
	for _, k := range m.Keys() {
		nk, ok := fn(k)
		if !ok {
			missing = append(missing, k)
			continue
		}
		out.entries[nk] = m.entries[k]
	}
	return out, missing
}
