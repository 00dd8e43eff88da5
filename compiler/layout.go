package compiler

import "sort"

// Layout is the result of the first assembly pass: where every routine and
// every logical operation landed, in words from the stream header. A Layout
// is never modified after pass 1 returns it.
type Layout struct {
	routines []int
	ops      map[int]int
}

// Offset returns the word offset of the operation with the given logical
// index.
func (l Layout) Offset(index int) (int, bool) {
	off, ok := l.ops[index]
	return off, ok
}

// RoutineOffset returns the start of routine i in final order.
func (l Layout) RoutineOffset(i int) int {
	return l.routines[i]
}

// RoutineCount returns the number of routines laid out.
func (l Layout) RoutineCount() int {
	return len(l.routines)
}

// Indices returns all logical operation indices in ascending order.
func (l Layout) Indices() []int {
	out := make([]int, 0, len(l.ops))
	for k := range l.ops {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
