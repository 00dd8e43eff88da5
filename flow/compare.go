package flow

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmdscript/ssb/bytecode"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Mismatch reports the first difference between two containers. Routine is
// -1 when the containers differ in routine count. Left and Right are the
// vertex indices of the differing pair, or -1.
type Mismatch struct {
	Routine     int
	Left        int
	Right       int
	Reason      string
	LeftVertex  *Vertex
	RightVertex *Vertex
}

// Error implements the error interface.
func (m *Mismatch) Error() string {
	var b strings.Builder
	if m.Routine < 0 {
		fmt.Fprintf(&b, "flow mismatch: %s", m.Reason)
	} else {
		fmt.Fprintf(&b, "flow mismatch in routine %d at vertices %d/%d: %s", m.Routine, m.Left, m.Right, m.Reason)
	}
	if m.LeftVertex != nil && m.RightVertex != nil {
		b.WriteString("\nleft:  ")
		b.WriteString(describe(m.LeftVertex))
		b.WriteString("\nright: ")
		b.WriteString(describe(m.RightVertex))
	}
	return b.String()
}

func describe(v *Vertex) string {
	switch v.Kind {
	case VertexOp:
		return fmt.Sprintf("%s @0x%x %s", v.Opcode, v.Offset, strings.TrimSpace(dumper.Sdump(v.Operands)))
	case VertexForeign:
		return fmt.Sprintf("foreign label 0x%x", v.Offset)
	default:
		return v.Kind.String()
	}
}

// Option configures a comparison.
type Option func(*config)

type config struct {
	rules Rules
}

// WithRules replaces the default canonicalization rules.
func WithRules(r Rules) Option {
	return func(cfg *config) {
		cfg.rules = r
	}
}

// Assert returns a *Mismatch describing the first difference between a and
// b, or nil if they are equivalent. Comparison stops at the first mismatch.
func Assert(a, b *bytecode.Container, opts ...Option) error {
	cfg := &config{rules: DefaultRules()}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(a.Routines) != len(b.Routines) {
		return &Mismatch{
			Routine: -1,
			Left:    -1,
			Right:   -1,
			Reason:  fmt.Sprintf("routine count %d != %d", len(a.Routines), len(b.Routines)),
		}
	}
	left := Build(a, cfg.rules)
	right := Build(b, cfg.rules)
	for i := range left {
		if m := CompareGraphs(left[i], right[i]); m != nil {
			return m
		}
	}
	return nil
}

// Equivalent reports whether a and b have equivalent control flow.
func Equivalent(a, b *bytecode.Container, opts ...Option) bool {
	return Assert(a, b, opts...) == nil
}

// CompareGraphs walks both graphs breadth-first and returns the first
// difference, or nil.
func CompareGraphs(l, r *Graph) *Mismatch {
	ls, rs := l.Walk(), r.Walk()
	n := min(len(ls), len(rs))
	for i := 0; i < n; i++ {
		a, b := ls[i], rs[i]
		fail := func(reason string) *Mismatch {
			return &Mismatch{
				Routine:     l.Routine,
				Left:        a.Vertex,
				Right:       b.Vertex,
				Reason:      fmt.Sprintf("step %d: %s", i, reason),
				LeftVertex:  &l.Vertices[a.Vertex],
				RightVertex: &r.Vertices[b.Vertex],
			}
		}
		if a.Distance != b.Distance {
			return fail(fmt.Sprintf("distance %d != %d", a.Distance, b.Distance))
		}
		if a.Parent != b.Parent {
			return fail(fmt.Sprintf("parent step %d != %d", a.Parent, b.Parent))
		}
		if a.Revisit != b.Revisit {
			return fail("vertex revisited on one side only")
		}
		if reason := compareVertices(&l.Vertices[a.Vertex], &r.Vertices[b.Vertex]); reason != "" {
			return fail(reason)
		}
	}
	if len(ls) != len(rs) {
		return &Mismatch{
			Routine: l.Routine,
			Left:    -1,
			Right:   -1,
			Reason:  fmt.Sprintf("walk length %d != %d", len(ls), len(rs)),
		}
	}
	return nil
}

func compareVertices(a, b *Vertex) string {
	if a.Kind != b.Kind {
		return fmt.Sprintf("%s vertex != %s vertex", a.Kind, b.Kind)
	}
	if a.Kind != VertexOp {
		return ""
	}
	if a.Opcode != b.Opcode {
		return fmt.Sprintf("opcode %s != %s", a.Opcode, b.Opcode)
	}
	if len(a.Operands) != len(b.Operands) {
		return fmt.Sprintf("%d operands != %d", len(a.Operands), len(b.Operands))
	}
	for i := range a.Operands {
		if a.Operands[i] != b.Operands[i] {
			return fmt.Sprintf("operand %d: %s != %s", i, a.Operands[i], b.Operands[i])
		}
	}
	return ""
}
