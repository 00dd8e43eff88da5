package schema

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
)

// File is the TOML layout of an opcode table:
//
//	[[opcodes]]
//	id = 0x15
//	name = "Jump"
//	params = 1
//	jumps = true
//	ends_flow = true
//	arguments = [{ name = "target", type = "uint" }]
//
//	[enums]
//	Entity = [{ id = 0, name = "PLAYER" }]
//
//	[[coroutines]]
//	id = 0
//	name = "EVENT_DIVIDE"
type File struct {
	Opcodes    []OpcodeDef          `toml:"opcodes"`
	Enums      map[string][]EnumDef `toml:"enums"`
	Coroutines []CoroutineDef       `toml:"coroutines"`
}

// OpcodeDef is one [[opcodes]] entry.
type OpcodeDef struct {
	ID        int           `toml:"id"`
	Name      string        `toml:"name"`
	Params    int           `toml:"params"`
	Jumps     bool          `toml:"jumps"`
	EndsFlow  bool          `toml:"ends_flow"`
	Arguments []ArgumentDef `toml:"arguments"`
	Repeating *RepeatingDef `toml:"repeating"`
}

// ArgumentDef is one argument of an opcode.
type ArgumentDef struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
	Enum string `toml:"enum"`
}

// RepeatingDef is a repeating argument group.
type RepeatingDef struct {
	Start     int   `toml:"start"`
	Arguments []int `toml:"arguments"`
}

// EnumDef is one symbolic constant.
type EnumDef struct {
	ID   int    `toml:"id"`
	Name string `toml:"name"`
}

// CoroutineDef is one coroutine table entry.
type CoroutineDef struct {
	ID   int    `toml:"id"`
	Name string `toml:"name"`
}

// Load reads and validates an opcode table from a TOML file.
func Load(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates an opcode table from TOML text.
func Parse(data []byte) (*Static, error) {
	var f File
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}
	return f.Build()
}

// Build converts the file layout into a validated provider.
func (f *File) Build() (*Static, error) {
	var result *multierror.Error
	opcodes := make([]Opcode, 0, len(f.Opcodes))
	for _, def := range f.Opcodes {
		if def.ID < 0 || def.ID > 0xFFFF {
			result = multierror.Append(result, fmt.Errorf("opcode %s: id %d out of range", def.Name, def.ID))
			continue
		}
		o := Opcode{
			ID:                  uint16(def.ID),
			Name:                def.Name,
			Params:              def.Params,
			JumpsToMemoryOffset: def.Jumps,
			EndsFlow:            def.EndsFlow,
		}
		for i, a := range def.Arguments {
			kind, err := ParseArgKind(a.Type)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("opcode %s argument %d: %w", def.Name, i, err))
				continue
			}
			o.Arguments = append(o.Arguments, Argument{Name: a.Name, Kind: kind, Enum: a.Enum})
		}
		if def.Repeating != nil {
			o.Repeating = &RepeatingGroup{Start: def.Repeating.Start, Arguments: def.Repeating.Arguments}
		}
		opcodes = append(opcodes, o)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	enums := make(map[string][]EnumEntry, len(f.Enums))
	for kind, defs := range f.Enums {
		entries := make([]EnumEntry, len(defs))
		for i, d := range defs {
			entries[i] = EnumEntry{ID: d.ID, Name: d.Name}
		}
		enums[kind] = entries
	}
	coroutines := make([]Coroutine, len(f.Coroutines))
	for i, c := range f.Coroutines {
		coroutines[i] = Coroutine{ID: c.ID, Name: c.Name}
	}
	return NewStatic(opcodes, enums, coroutines)
}
