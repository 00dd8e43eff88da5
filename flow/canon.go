package flow

import "github.com/pmdscript/ssb/bytecode"

// Rules names the opcodes and constants involved in canonicalization.
// Operand lists passed to Canonicalize never include the jump target.
type Rules struct {
	// CalcValue with operator AssignOperator becomes Set:
	// CalcValue(var, ASSIGN, value) => Set(var, value).
	CalcValue      string
	AssignOperator string
	Set            string

	// BranchBit on PerformanceVariable becomes BranchPerformance:
	// BranchBit(PERFORMANCE_PROGRESS_LIST, bit) => BranchPerformance(bit).
	BranchBit           string
	PerformanceVariable string
	BranchPerformance   string

	// BranchVariation's operand is clamped to 0 or 1.
	BranchVariation string
}

// DefaultRules returns the rules for the game's opcode names.
func DefaultRules() Rules {
	return Rules{
		CalcValue:           "flag_CalcValue",
		AssignOperator:      "ASSIGN",
		Set:                 "flag_Set",
		BranchBit:           "BranchBit",
		PerformanceVariable: "PERFORMANCE_PROGRESS_LIST",
		BranchPerformance:   "BranchPerformance",
		BranchVariation:     "BranchVariation",
	}
}

// Canonicalize rewrites an operation into its normal form. The input slice
// is not modified.
func (r Rules) Canonicalize(name string, operands []bytecode.Param) (string, []bytecode.Param) {
	switch {
	case name == r.CalcValue && len(operands) == 3 && isConstant(operands[1], r.AssignOperator):
		return r.Set, []bytecode.Param{operands[0], operands[2]}
	case name == r.BranchBit && len(operands) == 2 && isConstant(operands[0], r.PerformanceVariable):
		return r.BranchPerformance, []bytecode.Param{operands[1]}
	case name == r.BranchVariation && len(operands) == 1:
		p := operands[0]
		if p.Value > 0 {
			p.Value = 1
		} else {
			p.Value = 0
		}
		return name, []bytecode.Param{p}
	}
	return name, operands
}

func isConstant(p bytecode.Param, name string) bool {
	return name != "" && p.Kind == bytecode.ParamEnum && p.Name == name
}
