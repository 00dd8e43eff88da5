// Package schema describes the shape of the script engine's opcode table.
//
// The table contents are static configuration data supplied by the caller
// (see Load and Parse). Every component that interprets argument words
// borrows a Provider read-only; a Static provider is immutable after
// construction and safe for concurrent use.
package schema

import "fmt"

// Variable is the parameter count of opcodes whose argument count is
// encoded in the operation stream.
const Variable = -1

// ArgKind is the semantic type of one argument word.
type ArgKind uint8

const (
	ArgUint ArgKind = iota
	ArgSint14
	ArgSint16
	ArgEnum
	ArgConstString
	ArgString
	ArgPositionMarker
)

var argKindNames = map[ArgKind]string{
	ArgUint:           "uint",
	ArgSint14:         "sint",
	ArgSint16:         "Sint16",
	ArgEnum:           "Enum",
	ArgConstString:    "ConstString",
	ArgString:         "String",
	ArgPositionMarker: "PositionMark",
}

// String returns the name used for the kind in schema files.
func (k ArgKind) String() string {
	if name, ok := argKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ArgKind(%d)", uint8(k))
}

// ParseArgKind resolves a schema file type name.
func ParseArgKind(s string) (ArgKind, error) {
	for k, name := range argKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown argument type %q", s)
}

// IsString reports whether the kind refers into a string pool.
func (k ArgKind) IsString() bool {
	return k == ArgConstString || k == ArgString
}

// PositionMarkerWords is the number of raw words a position marker spans.
const PositionMarkerWords = 4

// Argument describes one argument slot of an opcode.
type Argument struct {
	Name string
	Kind ArgKind
	// Enum names the symbolic table for ArgEnum arguments.
	Enum string
}

// RepeatingGroup makes argument slots at or past Start cycle through the
// listed argument indices.
type RepeatingGroup struct {
	Start     int
	Arguments []int
}

// Opcode is one entry of the opcode table.
type Opcode struct {
	ID        uint16
	Name      string
	Params    int
	Arguments []Argument
	Repeating *RepeatingGroup

	// JumpsToMemoryOffset marks opcodes whose last parameter is a jump
	// target.
	JumpsToMemoryOffset bool
	// EndsFlow marks opcodes after which execution never falls through.
	EndsFlow bool
}

// IsVariable reports whether the argument count is stored in the stream.
func (o *Opcode) IsVariable() bool {
	return o.Params == Variable
}

// ArgumentAt returns the argument definition for raw word i. The second result
// is false when the table has no definition for the slot, in which case the word
// is treated as an untyped raw value.
func (o *Opcode) ArgumentAt(i int) (Argument, bool) {
	if g := o.Repeating; g != nil && i >= g.Start && len(g.Arguments) > 0 {
		idx := g.Arguments[(i-g.Start)%len(g.Arguments)]
		if idx >= 0 && idx < len(o.Arguments) {
			return o.Arguments[idx], true
		}
		return Argument{}, false
	}
	if i >= 0 && i < len(o.Arguments) {
		return o.Arguments[i], true
	}
	return Argument{}, false
}

// JumpParam returns the index of the jump target among n raw words, or -1.
func (o *Opcode) JumpParam(n int) int {
	if !o.JumpsToMemoryOffset || n == 0 {
		return -1
	}
	return n - 1
}

func (o *Opcode) String() string {
	return fmt.Sprintf("%s(0x%x)", o.Name, o.ID)
}

// EnumEntry is one symbolic constant.
type EnumEntry struct {
	ID   int
	Name string
}

// EnumTable is a named table of symbolic constants (actors, objects,
// game variables, coroutines, ...).
type EnumTable struct {
	kind    string
	entries []EnumEntry
	byID    map[int]int
	byName  map[string]int
}

// Kind returns the table name.
func (t *EnumTable) Kind() string {
	return t.kind
}

// ByID returns the entry with the given id.
func (t *EnumTable) ByID(id int) (EnumEntry, bool) {
	i, ok := t.byID[id]
	if !ok {
		return EnumEntry{}, false
	}
	return t.entries[i], true
}

// ByName returns the entry with the given name.
func (t *EnumTable) ByName(name string) (EnumEntry, bool) {
	i, ok := t.byName[name]
	if !ok {
		return EnumEntry{}, false
	}
	return t.entries[i], true
}

// Len returns the number of entries.
func (t *EnumTable) Len() int {
	return len(t.entries)
}

// Names returns entry names in table order.
func (t *EnumTable) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Name
	}
	return names
}

// Coroutine is one entry of the engine's coroutine table. Coroutine units
// must list exactly these routines, in this order.
type Coroutine struct {
	ID   int
	Name string
}

// CoroutineEnum is the enum table name under which a Static provider also
// exposes its coroutine table.
const CoroutineEnum = "Coroutine"

// Provider is the read-only view of the opcode table used by the decoder,
// the assembler and the flow checker.
type Provider interface {
	OpcodeByID(id uint16) (*Opcode, bool)
	OpcodeByName(name string) (*Opcode, bool)
	Enum(kind string) (*EnumTable, bool)
	Coroutines() []Coroutine
}
