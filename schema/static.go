package schema

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// Static is an immutable in-memory Provider.
type Static struct {
	opcodes    []*Opcode
	byID       map[uint16]*Opcode
	byName     map[string]*Opcode
	enums      map[string]*EnumTable
	coroutines []Coroutine
}

var _ Provider = (*Static)(nil)

// NewStatic validates and indexes an opcode table. All problems found are
// reported together.
func NewStatic(opcodes []Opcode, enums map[string][]EnumEntry, coroutines []Coroutine) (*Static, error) {
	s := &Static{
		byID:       make(map[uint16]*Opcode, len(opcodes)),
		byName:     make(map[string]*Opcode, len(opcodes)),
		enums:      make(map[string]*EnumTable, len(enums)+1),
		coroutines: append([]Coroutine(nil), coroutines...),
	}
	var result *multierror.Error

	for kind, entries := range enums {
		table, err := newEnumTable(kind, entries)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		s.enums[kind] = table
	}
	if _, ok := s.enums[CoroutineEnum]; !ok && len(coroutines) > 0 {
		entries := make([]EnumEntry, len(coroutines))
		for i, c := range coroutines {
			entries[i] = EnumEntry{ID: c.ID, Name: c.Name}
		}
		table, err := newEnumTable(CoroutineEnum, entries)
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			s.enums[CoroutineEnum] = table
		}
	}

	for i := range opcodes {
		o := opcodes[i]
		o.Arguments = append([]Argument(nil), o.Arguments...)
		if o.Repeating != nil {
			g := *o.Repeating
			g.Arguments = append([]int(nil), g.Arguments...)
			o.Repeating = &g
		}
		if err := s.validateOpcode(&o); err != nil {
			result = multierror.Append(result, err)
		}
		if prev, dup := s.byID[o.ID]; dup {
			result = multierror.Append(result, fmt.Errorf("opcode id 0x%x used by %s and %s", o.ID, prev.Name, o.Name))
			continue
		}
		if _, dup := s.byName[o.Name]; dup {
			result = multierror.Append(result, fmt.Errorf("opcode name %s defined twice", o.Name))
			continue
		}
		s.opcodes = append(s.opcodes, &o)
		s.byID[o.ID] = &o
		s.byName[o.Name] = &o
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	sort.Slice(s.opcodes, func(i, j int) bool { return s.opcodes[i].ID < s.opcodes[j].ID })
	return s, nil
}

func (s *Static) validateOpcode(o *Opcode) error {
	var result *multierror.Error
	if o.Name == "" {
		result = multierror.Append(result, fmt.Errorf("opcode 0x%x has no name", o.ID))
	}
	if o.Params < Variable {
		result = multierror.Append(result, fmt.Errorf("opcode %s: invalid parameter count %d", o.Name, o.Params))
	}
	if o.JumpsToMemoryOffset && o.Params == 0 {
		result = multierror.Append(result, fmt.Errorf("opcode %s jumps but takes no parameters", o.Name))
	}
	for i, a := range o.Arguments {
		if a.Kind != ArgEnum {
			continue
		}
		if _, ok := s.enums[a.Enum]; !ok {
			result = multierror.Append(result, fmt.Errorf("opcode %s argument %d: unknown enum table %q", o.Name, i, a.Enum))
		}
	}
	if g := o.Repeating; g != nil {
		if len(g.Arguments) == 0 {
			result = multierror.Append(result, fmt.Errorf("opcode %s: empty repeating group", o.Name))
		}
		for _, idx := range g.Arguments {
			if idx < 0 || idx >= len(o.Arguments) {
				result = multierror.Append(result, fmt.Errorf("opcode %s: repeating group refers to argument %d", o.Name, idx))
			}
		}
	}
	return result.ErrorOrNil()
}

func newEnumTable(kind string, entries []EnumEntry) (*EnumTable, error) {
	t := &EnumTable{
		kind:    kind,
		entries: append([]EnumEntry(nil), entries...),
		byID:    make(map[int]int, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	var result *multierror.Error
	for i, e := range t.entries {
		if _, dup := t.byID[e.ID]; dup {
			result = multierror.Append(result, fmt.Errorf("enum %s: id %d defined twice", kind, e.ID))
		}
		if _, dup := t.byName[e.Name]; dup {
			result = multierror.Append(result, fmt.Errorf("enum %s: name %s defined twice", kind, e.Name))
		}
		t.byID[e.ID] = i
		t.byName[e.Name] = i
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return t, nil
}

// OpcodeByID implements Provider.
func (s *Static) OpcodeByID(id uint16) (*Opcode, bool) {
	o, ok := s.byID[id]
	return o, ok
}

// OpcodeByName implements Provider.
func (s *Static) OpcodeByName(name string) (*Opcode, bool) {
	o, ok := s.byName[name]
	return o, ok
}

// Enum implements Provider.
func (s *Static) Enum(kind string) (*EnumTable, bool) {
	t, ok := s.enums[kind]
	return t, ok
}

// Coroutines implements Provider.
func (s *Static) Coroutines() []Coroutine {
	return append([]Coroutine(nil), s.coroutines...)
}

// OpcodeCount returns the number of opcodes in the table.
func (s *Static) OpcodeCount() int {
	return len(s.opcodes)
}

// OpcodeNames returns all opcode names ordered by id.
func (s *Static) OpcodeNames() []string {
	names := make([]string, len(s.opcodes))
	for i, o := range s.opcodes {
		names[i] = o.Name
	}
	return names
}
