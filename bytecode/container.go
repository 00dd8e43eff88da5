package bytecode

import (
	"fmt"

	"github.com/pmdscript/ssb/schema"
)

// Language is one of the localized string pools.
type Language string

const (
	English Language = "English"
	French  Language = "French"
	German  Language = "German"
	Italian Language = "Italian"
	Spanish Language = "Spanish"
)

// Region selects the header variant.
type Region uint8

const (
	// RegionUS has a 12 byte header and an English string pool.
	RegionUS Region = iota
	// RegionEU has an 18 byte header and five string pools.
	RegionEU
	// RegionJP has a 12 byte header and no localized strings.
	RegionJP
)

var regionLanguages = map[Region][]Language{
	RegionUS: {English},
	RegionEU: {English, French, German, Italian, Spanish},
	RegionJP: nil,
}

// String returns the region's short name.
func (r Region) String() string {
	switch r {
	case RegionUS:
		return "US"
	case RegionEU:
		return "EU"
	case RegionJP:
		return "JP"
	default:
		return fmt.Sprintf("Region(%d)", uint8(r))
	}
}

// HeaderLen returns the byte length of the region's header.
func (r Region) HeaderLen() int {
	if r == RegionEU {
		return 18
	}
	return 12
}

// Languages returns the string pools present in the region, in file order.
func (r Region) Languages() []Language {
	return append([]Language(nil), regionLanguages[r]...)
}

// RoutineKind is the raw routine type stored in the routine table.
// Values outside the named set are preserved as-is.
type RoutineKind uint16

const (
	RoutineInvalid   RoutineKind = 0
	RoutineGeneric   RoutineKind = 1
	RoutineActor     RoutineKind = 3
	RoutineObject    RoutineKind = 4
	RoutinePerformer RoutineKind = 5
	RoutineCoroutine RoutineKind = 9
)

// String returns the kind's name.
func (k RoutineKind) String() string {
	switch k {
	case RoutineInvalid:
		return "invalid"
	case RoutineGeneric:
		return "generic"
	case RoutineActor:
		return "actor"
	case RoutineObject:
		return "object"
	case RoutinePerformer:
		return "performer"
	case RoutineCoroutine:
		return "coroutine"
	default:
		return fmt.Sprintf("kind(%d)", uint16(k))
	}
}

// HasTarget reports whether routines of this kind are linked to an entity.
func (k RoutineKind) HasTarget() bool {
	return k == RoutineActor || k == RoutineObject || k == RoutinePerformer
}

// RoutineInfo is one routine table entry.
type RoutineInfo struct {
	Kind     RoutineKind
	LinkedTo uint16
	// Offset is the routine's start, in words from the stream header.
	Offset int
	// AliasOf is the index of the routine whose bytecode this entry reuses,
	// or -1.
	AliasOf int
}

// IsAlias reports whether the routine reuses another routine's bytecode.
func (r RoutineInfo) IsAlias() bool {
	return r.AliasOf >= 0
}

// Operation is one decoded instruction.
type Operation struct {
	// Offset is the instruction's position, in words from the stream header.
	Offset int
	Opcode *schema.Opcode
	Params []Param
}

// Words returns the number of argument words the parameters occupy.
func (o Operation) Words() int {
	n := 0
	for _, p := range o.Params {
		n += p.Words()
	}
	return n
}

// ByteLen returns the encoded length of the instruction.
func (o Operation) ByteLen() int {
	n := 2 + 2*o.Words()
	if o.Opcode != nil && o.Opcode.IsVariable() {
		n += 2
	}
	return n
}

// Name returns the opcode name, or "?" for unbound operations.
func (o Operation) Name() string {
	if o.Opcode == nil {
		return "?"
	}
	return o.Opcode.Name
}

// JumpTarget returns the jump parameter's word offset.
func (o Operation) JumpTarget() (int, bool) {
	if o.Opcode == nil {
		return 0, false
	}
	i := o.Opcode.JumpParam(len(o.Params))
	if i < 0 {
		return 0, false
	}
	return o.Params[i].Value, true
}

// Container is a decoded SSB file.
type Container struct {
	Region Region
	// Reserved holds header words with no known meaning, kept so that
	// re-encoding reproduces them.
	Reserved   []uint16
	Routines   []RoutineInfo
	RoutineOps [][]Operation
	Constants  []string
	Strings    map[Language][]string
}

// NewContainer returns an empty container for the region with one empty
// string pool per region language.
func NewContainer(region Region) *Container {
	c := &Container{
		Region:  region,
		Strings: make(map[Language][]string),
	}
	for _, lang := range region.Languages() {
		c.Strings[lang] = nil
	}
	return c
}

// RoutineCount returns the number of routine table entries.
func (c *Container) RoutineCount() int {
	return len(c.Routines)
}

// StringCount returns the number of localized strings per language.
func (c *Container) StringCount() int {
	for _, lang := range c.Region.Languages() {
		return len(c.Strings[lang])
	}
	return 0
}

// OpsFor returns the operations executed by routine i, following alias
// back-references. The returned slice is shared, not copied.
func (c *Container) OpsFor(i int) []Operation {
	seen := 0
	for c.Routines[i].IsAlias() && seen < len(c.Routines) {
		i = c.Routines[i].AliasOf
		seen++
	}
	return c.RoutineOps[i]
}

// Canonical returns the index of the routine that owns routine i's bytecode.
func (c *Container) Canonical(i int) int {
	seen := 0
	for c.Routines[i].IsAlias() && seen < len(c.Routines) {
		i = c.Routines[i].AliasOf
		seen++
	}
	return i
}
