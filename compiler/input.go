package compiler

import (
	"fmt"

	"github.com/pmdscript/ssb/bytecode"
)

// ParamKind tags the variant held by an InputParam.
type ParamKind uint8

const (
	ParamInt ParamKind = iota
	ParamEnum
	ParamConst
	ParamLocal
	ParamPosition
	ParamLabel
)

func (k ParamKind) String() string {
	switch k {
	case ParamInt:
		return "integer"
	case ParamEnum:
		return "enum constant"
	case ParamConst:
		return "constant string"
	case ParamLocal:
		return "localized string"
	case ParamPosition:
		return "position marker"
	case ParamLabel:
		return "label"
	default:
		return fmt.Sprintf("ParamKind(%d)", uint8(k))
	}
}

// InputParam is a parameter as produced by the script front-end.
type InputParam struct {
	Kind ParamKind
	// Int is the value of ParamInt parameters.
	Int int
	// Name is the constant name of ParamEnum parameters.
	Name string
	// Text is the value of ParamConst parameters.
	Text string
	// Local holds one text per language for ParamLocal parameters.
	Local map[bytecode.Language]string
	// Position is the value of ParamPosition parameters.
	Position bytecode.PositionMarker
	// Label is the logical operation index a ParamLabel parameter targets.
	Label int
}

// Int returns an integer parameter.
func Int(v int) InputParam { return InputParam{Kind: ParamInt, Int: v} }

// EnumConst returns a symbolic constant parameter.
func EnumConst(name string) InputParam { return InputParam{Kind: ParamEnum, Name: name} }

// Const returns a constant string parameter.
func Const(text string) InputParam { return InputParam{Kind: ParamConst, Text: text} }

// Local returns a localized string parameter.
func Local(texts map[bytecode.Language]string) InputParam {
	return InputParam{Kind: ParamLocal, Local: texts}
}

// Position returns a position marker parameter.
func Position(m bytecode.PositionMarker) InputParam {
	return InputParam{Kind: ParamPosition, Position: m}
}

// Label returns a jump target parameter referring to a logical operation
// index.
func Label(index int) InputParam { return InputParam{Kind: ParamLabel, Label: index} }

// InputOp is one operation of a routine as produced by the script front-end.
// Index is the operation's logical index, unique within the unit; labels and
// source map keys refer to it.
type InputOp struct {
	Index  int
	Name   string
	Params []InputParam
}
