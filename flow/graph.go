// Package flow compares the control flow of two containers.
//
// Each routine becomes a directed graph whose vertices are operations and
// whose edges are fall-through (level 0) and jump (level 1) transitions.
// Two containers are equivalent when a breadth-first walk of every routine
// graph visits the same shape with the same canonicalized operations on
// both sides.
package flow

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pmdscript/ssb/bytecode"
)

// VertexKind distinguishes operation vertices from synthetic ones.
type VertexKind uint8

const (
	// VertexOp is one operation of the routine.
	VertexOp VertexKind = iota
	// VertexReturn is the implicit exit after a routine whose last
	// operation falls through.
	VertexReturn
	// VertexForeign is a jump target outside the routine.
	VertexForeign
)

func (k VertexKind) String() string {
	switch k {
	case VertexOp:
		return "op"
	case VertexReturn:
		return "return"
	default:
		return "foreign"
	}
}

// Edge levels order the out-edges of a vertex during traversal.
const (
	LevelFallThrough = 0
	LevelJump        = 1
)

// Vertex is one node of a routine graph.
type Vertex struct {
	Kind VertexKind
	// Offset is the operation's word offset, or the jump target of a
	// foreign vertex.
	Offset   int
	Opcode   string
	Operands []Operand
}

// Operand is one canonicalized parameter. String references are resolved
// against the container's pools: Text holds the string (every region
// language joined by NUL for localized strings) and the pool index is
// cleared, so containers whose pools are ordered differently compare equal.
type Operand struct {
	Param    bytecode.Param
	Text     string
	Resolved bool
}

func (o Operand) String() string {
	if o.Resolved {
		return strconv.Quote(o.Text)
	}
	return o.Param.String()
}

// resolve turns parameters into operands. References outside their pool
// keep the index and stay unresolved.
func resolve(c *bytecode.Container, params []bytecode.Param) []Operand {
	out := make([]Operand, len(params))
	for i, p := range params {
		out[i] = Operand{Param: p}
		switch p.Kind {
		case bytecode.ParamConstString:
			if p.Value >= 0 && p.Value < len(c.Constants) {
				out[i] = Operand{
					Param:    bytecode.Param{Kind: p.Kind},
					Text:     c.Constants[p.Value],
					Resolved: true,
				}
			}
		case bytecode.ParamLocalString:
			langs := c.Region.Languages()
			texts := make([]string, 0, len(langs))
			for _, lang := range langs {
				pool := c.Strings[lang]
				if p.Value < 0 || p.Value >= len(pool) {
					break
				}
				texts = append(texts, pool[p.Value])
			}
			if len(langs) > 0 && len(texts) == len(langs) {
				out[i] = Operand{
					Param:    bytecode.Param{Kind: p.Kind},
					Text:     strings.Join(texts, "\x00"),
					Resolved: true,
				}
			}
		}
	}
	return out
}

// Edge is a directed transition to vertex To.
type Edge struct {
	To    int
	Level int
}

// Graph is the flow graph of one routine. Vertices are owned by the graph
// and referenced by index.
type Graph struct {
	Routine  int
	Vertices []Vertex
	edges    [][]Edge
}

// Entry returns the index of the routine's first vertex.
func (g *Graph) Entry() int {
	return 0
}

// Out returns the out-edges of v ordered by level.
func (g *Graph) Out(v int) []Edge {
	return g.edges[v]
}

func (g *Graph) addVertex(v Vertex) int {
	g.Vertices = append(g.Vertices, v)
	g.edges = append(g.edges, nil)
	return len(g.Vertices) - 1
}

func (g *Graph) addEdge(from, to, level int) {
	g.edges[from] = append(g.edges[from], Edge{To: to, Level: level})
}

// Build returns one graph per routine of c. Alias routines get the graph of
// the routine whose bytecode they share. Operations are canonicalized with
// rules and their string operands resolved before they are stored in
// vertices.
func Build(c *bytecode.Container, rules Rules) []*Graph {
	graphs := make([]*Graph, len(c.Routines))
	for i := range c.Routines {
		graphs[i] = buildRoutine(c, i, rules)
	}
	return graphs
}

func buildRoutine(c *bytecode.Container, routine int, rules Rules) *Graph {
	ops := c.OpsFor(routine)
	g := &Graph{Routine: routine}
	byOffset := make(map[int]int, len(ops))
	for _, op := range ops {
		name, operands := rules.Canonicalize(op.Name(), operandsOf(op))
		byOffset[op.Offset] = g.addVertex(Vertex{
			Kind:     VertexOp,
			Offset:   op.Offset,
			Opcode:   name,
			Operands: resolve(c, operands),
		})
	}

	ret := -1
	returnVertex := func() int {
		if ret < 0 {
			ret = g.addVertex(Vertex{Kind: VertexReturn, Offset: -1})
		}
		return ret
	}
	foreign := make(map[int]int)
	if len(ops) == 0 {
		returnVertex()
	}

	for i, op := range ops {
		if op.Opcode == nil || !op.Opcode.EndsFlow {
			if i+1 < len(ops) {
				g.addEdge(i, i+1, LevelFallThrough)
			} else {
				g.addEdge(i, returnVertex(), LevelFallThrough)
			}
		}
		target, ok := op.JumpTarget()
		if !ok {
			continue
		}
		to, local := byOffset[target]
		if !local {
			if to, local = foreign[target]; !local {
				to = g.addVertex(Vertex{Kind: VertexForeign, Offset: target})
				foreign[target] = to
			}
		}
		g.addEdge(i, to, LevelJump)
	}
	for v := range g.edges {
		sort.SliceStable(g.edges[v], func(a, b int) bool {
			return g.edges[v][a].Level < g.edges[v][b].Level
		})
	}
	return g
}

// operandsOf returns the operation's parameters without the jump target.
func operandsOf(op bytecode.Operation) []bytecode.Param {
	if op.Opcode == nil {
		return op.Params
	}
	skip := op.Opcode.JumpParam(len(op.Params))
	out := make([]bytecode.Param, 0, len(op.Params))
	for i, p := range op.Params {
		if i != skip {
			out = append(out, p)
		}
	}
	return out
}

// Step is one element of a breadth-first walk.
type Step struct {
	Vertex int
	// Parent is the index of the step that discovered this one, or -1.
	Parent   int
	Distance int
	// Revisit marks a vertex seen before; it is not expanded again.
	Revisit bool
}

// Walk returns the breadth-first sequence of the graph from its entry.
// Out-edges are followed in level order. A vertex reached again is yielded
// once more for alignment but not expanded.
func (g *Graph) Walk() []Step {
	if len(g.Vertices) == 0 {
		return nil
	}
	steps := []Step{{Vertex: g.Entry(), Parent: -1}}
	visited := map[int]bool{g.Entry(): true}
	for head := 0; head < len(steps); head++ {
		cur := steps[head]
		if cur.Revisit {
			continue
		}
		for _, e := range g.Out(cur.Vertex) {
			s := Step{Vertex: e.To, Parent: head, Distance: cur.Distance + 1}
			if visited[e.To] {
				s.Revisit = true
			} else {
				visited[e.To] = true
			}
			steps = append(steps, s)
		}
	}
	return steps
}
