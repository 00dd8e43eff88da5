package bytecode

import (
	"fmt"

	sserrors "github.com/pmdscript/ssb/errors"
	"github.com/pmdscript/ssb/schema"
	"github.com/rs/zerolog"
)

// ParamKind tags the variant held by a Param.
type ParamKind uint8

const (
	// ParamRaw is an untyped word: either the argument has no definition or its
	// typed decode failed non-fatally.
	ParamRaw ParamKind = iota
	ParamUint
	ParamSint14
	ParamSint16
	ParamEnum
	ParamConstString
	ParamLocalString
	ParamPositionMarker
)

var paramKindNames = [...]string{
	ParamRaw:            "raw",
	ParamUint:           "uint",
	ParamSint14:         "sint14",
	ParamSint16:         "sint16",
	ParamEnum:           "enum",
	ParamConstString:    "const",
	ParamLocalString:    "string",
	ParamPositionMarker: "position",
}

func (k ParamKind) String() string {
	if int(k) < len(paramKindNames) {
		return paramKindNames[k]
	}
	return fmt.Sprintf("ParamKind(%d)", uint8(k))
}

// PositionMarker is the four-word position argument.
type PositionMarker struct {
	XOffset   int
	YOffset   int
	XRelative int
	YRelative int
}

// Param is one typed argument of an operation.
//
// Value holds the decoded integer for the numeric kinds, the enum id for
// ParamEnum and the pool index for the string kinds. Position is only set
// for ParamPositionMarker.
type Param struct {
	Kind     ParamKind
	Value    int
	Table    string
	Name     string
	Position PositionMarker
}

// Raw returns an untyped parameter.
func Raw(v int) Param { return Param{Kind: ParamRaw, Value: v} }

// Uint returns an unsigned parameter.
func Uint(v int) Param { return Param{Kind: ParamUint, Value: v} }

// Sint14 returns a 14-bit signed parameter.
func Sint14(v int) Param { return Param{Kind: ParamSint14, Value: v} }

// Sint16 returns a 16-bit signed parameter.
func Sint16(v int) Param { return Param{Kind: ParamSint16, Value: v} }

// Enum returns a symbolic reference into table.
func Enum(table string, e schema.EnumEntry) Param {
	return Param{Kind: ParamEnum, Value: e.ID, Table: table, Name: e.Name}
}

// ConstString returns a constant pool reference.
func ConstString(i int) Param { return Param{Kind: ParamConstString, Value: i} }

// LocalString returns a localized pool reference.
func LocalString(i int) Param { return Param{Kind: ParamLocalString, Value: i} }

// Position returns a position marker parameter.
func Position(m PositionMarker) Param {
	return Param{Kind: ParamPositionMarker, Position: m}
}

// Words returns the number of raw words the parameter occupies.
func (p Param) Words() int {
	if p.Kind == ParamPositionMarker {
		return schema.PositionMarkerWords
	}
	return 1
}

// IsString reports whether the parameter refers into a string pool.
func (p Param) IsString() bool {
	return p.Kind == ParamConstString || p.Kind == ParamLocalString
}

func (p Param) String() string {
	switch p.Kind {
	case ParamEnum:
		return fmt.Sprintf("%s.%s", p.Table, p.Name)
	case ParamConstString:
		return fmt.Sprintf("const#%d", p.Value)
	case ParamLocalString:
		return fmt.Sprintf("string#%d", p.Value)
	case ParamPositionMarker:
		m := p.Position
		return fmt.Sprintf("Position<%d, %d, %d, %d>", m.XOffset, m.YOffset, m.XRelative, m.YRelative)
	default:
		return fmt.Sprintf("%d", p.Value)
	}
}

// DecodeSint14 decodes a 14-bit signed word. Words at or above 0x8000 are
// outside the encoding's domain and are returned unchanged.
func DecodeSint14(raw uint16) int {
	if raw >= 0x8000 {
		return int(raw)
	}
	if raw&0x4000 != 0 {
		return int(raw) - 0x8000
	}
	return int(raw)
}

// DecodeSint16 decodes a two's complement word.
func DecodeSint16(raw uint16) int {
	if raw&0x8000 != 0 {
		return int(raw) - 0x10000
	}
	return int(raw)
}

// SintFits reports whether v survives EncodeSint and the matching decoder
// unchanged. Sint14 words at or above 0x8000 pass through as-is.
func SintFits(v int, kind schema.ArgKind) bool {
	switch kind {
	case schema.ArgSint14:
		return (v >= -0x4000 && v < 0x4000) || (v >= 0x8000 && v <= 0xFFFF)
	case schema.ArgSint16:
		return v >= -0x8000 && v < 0x8000
	default:
		return v >= 0 && v <= 0xFFFF
	}
}

// EncodeSint biases a negative value for an argument slot of the given kind.
// Sint16 slots use +0x10000, every other slot +0x8000. The result is not
// range checked.
func EncodeSint(v int, kind schema.ArgKind) int {
	if v >= 0 {
		return v
	}
	if kind == schema.ArgSint16 {
		return v + 0x10000
	}
	return v + 0x8000
}

// DecodeStringRef resolves a string argument word. Words below constCount
// index the constant pool, all others the localized pool.
func DecodeStringRef(raw uint16, constCount int) Param {
	if int(raw) >= constCount {
		return LocalString(int(raw) - constCount)
	}
	return ConstString(int(raw))
}

// EncodeStringRef is the inverse of DecodeStringRef.
func EncodeStringRef(p Param, constCount int) int {
	if p.Kind == ParamLocalString {
		return p.Value + constCount
	}
	return p.Value
}

// paramDecoder turns raw argument words into typed parameters.
type paramDecoder struct {
	provider   schema.Provider
	constCount int
	logger     zerolog.Logger
}

// decode types the raw words of one operation. offset is the byte offset of
// the operation, used in log output.
func (d *paramDecoder) decode(o *schema.Opcode, words []uint16, offset int) []Param {
	if len(words) == 0 {
		return nil
	}
	params := make([]Param, 0, len(words))
	for i := 0; i < len(words); i++ {
		raw := words[i]
		arg, ok := o.ArgumentAt(i)
		if !ok {
			params = append(params, Raw(int(raw)))
			continue
		}
		switch arg.Kind {
		case schema.ArgUint:
			params = append(params, Uint(int(raw)))
		case schema.ArgSint14:
			params = append(params, Sint14(DecodeSint14(raw)))
		case schema.ArgSint16:
			params = append(params, Sint16(DecodeSint16(raw)))
		case schema.ArgEnum:
			params = append(params, d.enum(o, arg, raw, offset))
		case schema.ArgConstString, schema.ArgString:
			params = append(params, DecodeStringRef(raw, d.constCount))
		case schema.ArgPositionMarker:
			if i+schema.PositionMarkerWords > len(words) {
				params = append(params, Raw(int(raw)))
				continue
			}
			params = append(params, Position(PositionMarker{
				XOffset:   int(words[i]),
				YOffset:   int(words[i+1]),
				XRelative: int(words[i+2]),
				YRelative: int(words[i+3]),
			}))
			i += schema.PositionMarkerWords - 1
		default:
			params = append(params, Raw(int(raw)))
		}
	}
	return params
}

func (d *paramDecoder) enum(o *schema.Opcode, arg schema.Argument, raw uint16, offset int) Param {
	if table, ok := d.provider.Enum(arg.Enum); ok {
		if e, ok := table.ByID(int(raw)); ok {
			return Enum(arg.Enum, e)
		}
	}
	err := sserrors.UnknownEnum(arg.Enum, int(raw), offset, o.Name)
	d.logger.Warn().
		Err(err).
		Str("opcode", o.Name).
		Str("enum", arg.Enum).
		Int("raw", int(raw)).
		Int("offset", offset).
		Msg("unknown enum id, keeping raw value")
	return Raw(int(raw))
}

// lowerParam appends the raw words of p to dst. slot is the argument kind
// the schema declares for the parameter's first word (ArgUint if none).
func lowerParam(dst []uint16, p Param, slot schema.ArgKind, constCount int) ([]uint16, error) {
	if p.Kind == ParamSint16 {
		slot = schema.ArgSint16
	}
	word := func(v int) error {
		if v < 0 || v > 0xFFFF {
			return fmt.Errorf("value %d of %s parameter does not fit in a word", v, p.Kind)
		}
		dst = append(dst, uint16(v))
		return nil
	}
	var err error
	switch p.Kind {
	case ParamSint14, ParamSint16:
		kind := schema.ArgSint14
		if p.Kind == ParamSint16 {
			kind = schema.ArgSint16
		}
		if !SintFits(p.Value, kind) {
			return dst, fmt.Errorf("value %d is outside the %s domain", p.Value, p.Kind)
		}
		err = word(EncodeSint(p.Value, slot))
	case ParamConstString, ParamLocalString:
		err = word(EncodeStringRef(p, constCount))
	case ParamPositionMarker:
		m := p.Position
		for _, v := range []int{m.XOffset, m.YOffset, m.XRelative, m.YRelative} {
			if err = word(v); err != nil {
				break
			}
		}
	default:
		err = word(EncodeSint(p.Value, slot))
	}
	return dst, err
}
