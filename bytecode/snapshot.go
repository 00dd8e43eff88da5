package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/pmdscript/ssb/schema"
)

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
}

// MarshalSnapshot encodes the logical content of a container as canonical
// CBOR. Equal containers produce identical bytes.
func MarshalSnapshot(c *Container) ([]byte, error) {
	return snapshotEncMode.Marshal(stateFromContainer(c))
}

// UnmarshalSnapshot decodes a snapshot, binding opcodes through provider.
func UnmarshalSnapshot(data []byte, provider schema.Provider) (*Container, error) {
	var state containerState
	if err := cbor.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal snapshot: %w", err)
	}
	return containerFromState(&state, provider)
}

// Serialization types

type paramDef struct {
	Kind     uint8  `cbor:"k"`
	Value    int    `cbor:"v,omitempty"`
	Table    string `cbor:"t,omitempty"`
	Name     string `cbor:"n,omitempty"`
	Position []int  `cbor:"p,omitempty"`
}

type operationDef struct {
	Offset int        `cbor:"offset"`
	Opcode uint16     `cbor:"opcode"`
	Params []paramDef `cbor:"params"`
}

type routineDef struct {
	Kind     uint16         `cbor:"kind"`
	LinkedTo uint16         `cbor:"linked_to"`
	Offset   int            `cbor:"offset"`
	AliasOf  int            `cbor:"alias_of"`
	Ops      []operationDef `cbor:"ops"`
}

type containerState struct {
	Region    uint8               `cbor:"region"`
	Reserved  []uint16            `cbor:"reserved"`
	Routines  []routineDef        `cbor:"routines"`
	Constants []string            `cbor:"constants"`
	Strings   map[string][]string `cbor:"strings"`
}

func stateFromContainer(c *Container) *containerState {
	state := &containerState{
		Region:    uint8(c.Region),
		Reserved:  c.Reserved,
		Constants: c.Constants,
		Strings:   make(map[string][]string, len(c.Strings)),
	}
	for lang, strs := range c.Strings {
		state.Strings[string(lang)] = strs
	}
	for i, r := range c.Routines {
		def := routineDef{
			Kind:     uint16(r.Kind),
			LinkedTo: r.LinkedTo,
			Offset:   r.Offset,
			AliasOf:  r.AliasOf,
		}
		if i < len(c.RoutineOps) {
			for _, op := range c.RoutineOps[i] {
				def.Ops = append(def.Ops, operationDefFrom(op))
			}
		}
		state.Routines = append(state.Routines, def)
	}
	return state
}

func operationDefFrom(op Operation) operationDef {
	def := operationDef{Offset: op.Offset, Params: make([]paramDef, len(op.Params))}
	if op.Opcode != nil {
		def.Opcode = op.Opcode.ID
	}
	for i, p := range op.Params {
		pd := paramDef{Kind: uint8(p.Kind), Value: p.Value, Table: p.Table, Name: p.Name}
		if p.Kind == ParamPositionMarker {
			m := p.Position
			pd.Position = []int{m.XOffset, m.YOffset, m.XRelative, m.YRelative}
		}
		def.Params[i] = pd
	}
	return def
}

func containerFromState(state *containerState, provider schema.Provider) (*Container, error) {
	c := NewContainer(Region(state.Region))
	c.Reserved = state.Reserved
	c.Constants = state.Constants
	for lang, strs := range state.Strings {
		c.Strings[Language(lang)] = strs
	}
	c.Routines = make([]RoutineInfo, len(state.Routines))
	c.RoutineOps = make([][]Operation, len(state.Routines))
	for i, def := range state.Routines {
		c.Routines[i] = RoutineInfo{
			Kind:     RoutineKind(def.Kind),
			LinkedTo: def.LinkedTo,
			Offset:   def.Offset,
			AliasOf:  def.AliasOf,
		}
		for j, od := range def.Ops {
			o, ok := provider.OpcodeByID(od.Opcode)
			if !ok {
				return nil, fmt.Errorf("bytecode: routine %d operation %d: unknown opcode id 0x%x", i, j, od.Opcode)
			}
			op := Operation{Offset: od.Offset, Opcode: o}
			if len(od.Params) > 0 {
				op.Params = make([]Param, len(od.Params))
			}
			for k, pd := range od.Params {
				p := Param{Kind: ParamKind(pd.Kind), Value: pd.Value, Table: pd.Table, Name: pd.Name}
				if p.Kind == ParamPositionMarker {
					if len(pd.Position) != schema.PositionMarkerWords {
						return nil, fmt.Errorf("bytecode: routine %d operation %d: position marker has %d words",
							i, j, len(pd.Position))
					}
					p.Position = PositionMarker{
						XOffset:   pd.Position[0],
						YOffset:   pd.Position[1],
						XRelative: pd.Position[2],
						YRelative: pd.Position[3],
					}
				}
				op.Params[k] = p
			}
			c.RoutineOps[i] = append(c.RoutineOps[i], op)
		}
	}
	return c, nil
}
