// Package compiler assembles routine/operation trees produced by a script
// front-end into an SSB container.
//
// # Two-Pass Assembly
//
// Jump parameters in the input refer to operations by their logical index,
// which may point forward or backward. Assembly therefore runs in two
// passes.
//
// Pass 1: layout
//
// Walks routines in final order and lowers every operation to typed
// bytecode parameters, growing the constant and localized string pools as
// string parameters are met. Each operation's word offset is recorded in an
// immutable Layout keyed by logical index. Jump parameters are left as
// placeholders.
//
// Pass 2: fix-ups
//
// Rewrites every jump placeholder from its logical index to the offset the
// Layout recorded, and rewrites the source map the same way.
//
// # Coroutine Units
//
// A unit made of coroutines must list exactly the routines of the schema's
// coroutine table. They are reordered into table order before pass 1.
package compiler

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pmdscript/ssb/bytecode"
	"github.com/pmdscript/ssb/errors"
	"github.com/pmdscript/ssb/schema"
	"github.com/rs/zerolog"
)

// Result is the output of Assemble.
type Result struct {
	Container *bytecode.Container
	// SourceMap is keyed by word offset from the stream header.
	SourceMap *bytecode.SourceMap
	Layout    Layout
}

// Compiler holds the state of one assembly.
type Compiler struct {
	provider schema.Provider
	cfg      *config
	logger   zerolog.Logger

	constants *constantPool
	localized *localizedPool
	fixups    []fixup
	source    *bytecode.SourceMap
}

// fixup is a jump parameter awaiting its target offset.
type fixup struct {
	routine int
	input   int
	op      int
	param   int
	label   int
}

// unit is one routine of the input, carried through reordering.
type unit struct {
	input     int
	info      bytecode.RoutineInfo
	coroutine string
	ops       []InputOp
}

// Assemble builds a container from routine metadata, coroutine names and
// operation lists, which must have equal lengths. A nil routine entry means
// the front-end could not resolve the routine. coroutines[i] is the name of
// routine i if it is a coroutine, otherwise empty. sourceMap is keyed by
// logical operation index and may be nil.
func Assemble(
	provider schema.Provider,
	routines []*bytecode.RoutineInfo,
	coroutines []string,
	ops [][]InputOp,
	sourceMap *bytecode.SourceMap,
	opts ...Option,
) (*Result, error) {
	cfg := newConfig(opts)
	c := &Compiler{
		provider:  provider,
		cfg:       cfg,
		logger:    cfg.logger,
		constants: newConstantPool(),
		localized: newLocalizedPool(cfg.region.Languages()),
		source:    sourceMap,
	}
	return c.assemble(routines, coroutines, ops)
}

func (c *Compiler) assemble(routines []*bytecode.RoutineInfo, coroutines []string, ops [][]InputOp) (*Result, error) {
	if len(routines) != len(coroutines) || len(routines) != len(ops) {
		return nil, errors.Compilef(errors.E2009, -1,
			"got %d routines, %d coroutine names and %d operation lists",
			len(routines), len(coroutines), len(ops))
	}
	units := make([]unit, len(routines))
	for i, info := range routines {
		if info == nil {
			return nil, errors.Compilef(errors.E2001, i, "routine %d not found", i)
		}
		units[i] = unit{input: i, info: *info, coroutine: coroutines[i], ops: ops[i]}
	}
	units, err := c.orderCoroutines(units)
	if err != nil {
		return nil, err
	}

	container := bytecode.NewContainer(c.cfg.region)
	layout, err := c.layout(units, container)
	if err != nil {
		return nil, err
	}
	if err := c.fixJumps(container, layout); err != nil {
		return nil, err
	}
	container.Constants = c.constants.values
	for lang, strs := range c.localized.values {
		container.Strings[lang] = strs
	}
	return &Result{
		Container: container,
		SourceMap: c.remapSource(layout),
		Layout:    layout,
	}, nil
}

func isCoroutine(u unit) bool {
	return u.coroutine != "" || u.info.Kind == bytecode.RoutineCoroutine
}

// orderCoroutines sorts a coroutine unit into schema order. Units without
// coroutines are returned unchanged.
func (c *Compiler) orderCoroutines(units []unit) ([]unit, error) {
	n := 0
	for _, u := range units {
		if isCoroutine(u) {
			n++
		}
	}
	if n == 0 {
		return units, nil
	}
	if n != len(units) {
		for _, u := range units {
			if !isCoroutine(u) {
				return nil, errors.Compilef(errors.E2006, u.input,
					"routine %d is not a coroutine, but %d other routines are", u.input, n)
			}
		}
	}

	table := c.provider.Coroutines()
	rank := make(map[string]int, len(table))
	for i, co := range table {
		rank[co.Name] = i
	}
	var result *multierror.Error
	seen := make(map[string]int, len(units))
	for _, u := range units {
		if u.coroutine == "" {
			result = multierror.Append(result, fmt.Errorf("routine %d is a coroutine without a name", u.input))
			continue
		}
		if _, ok := rank[u.coroutine]; !ok {
			result = multierror.Append(result, fmt.Errorf("routine %d: unknown coroutine %s", u.input, u.coroutine))
			continue
		}
		if prev, dup := seen[u.coroutine]; dup {
			result = multierror.Append(result, fmt.Errorf("coroutine %s defined by routines %d and %d", u.coroutine, prev, u.input))
			continue
		}
		seen[u.coroutine] = u.input
	}
	for _, co := range table {
		if _, ok := seen[co.Name]; !ok {
			result = multierror.Append(result, fmt.Errorf("coroutine %s is missing", co.Name))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		ce := errors.Compilef(errors.E2005, -1,
			"unit has %d coroutines, the coroutine table has %d", len(units), len(table))
		ce.Cause = err
		return nil, ce
	}

	sorted := append([]unit(nil), units...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank[sorted[i].coroutine] < rank[sorted[j].coroutine]
	})
	return sorted, nil
}

// layout is pass 1. It fills the container's routines and operations and
// returns where every operation landed.
func (c *Compiler) layout(units []unit, container *bytecode.Container) (Layout, error) {
	l := Layout{
		routines: make([]int, len(units)),
		ops:      make(map[int]int),
	}
	container.Routines = make([]bytecode.RoutineInfo, len(units))
	container.RoutineOps = make([][]bytecode.Operation, len(units))
	cursor := 2 + 3*len(units)

	for i, u := range units {
		info := bytecode.RoutineInfo{Kind: u.info.Kind, LinkedTo: u.info.LinkedTo, AliasOf: -1}
		if len(u.ops) == 0 {
			if i == 0 {
				return Layout{}, errors.Compilef(errors.E2011, u.input, "first routine has no operations")
			}
			// An empty routine shares the bytecode of the one before it.
			prev := container.Routines[i-1]
			info.AliasOf = i - 1
			if prev.AliasOf >= 0 {
				info.AliasOf = prev.AliasOf
			}
			info.Offset = prev.Offset
			l.routines[i] = info.Offset
			container.Routines[i] = info
			c.logger.Debug().Int("routine", i).Int("offset", info.Offset).Int("alias_of", info.AliasOf).Msg("alias routine")
			continue
		}

		info.Offset = cursor
		l.routines[i] = cursor
		out := make([]bytecode.Operation, 0, len(u.ops))
		for j, in := range u.ops {
			if _, dup := l.ops[in.Index]; dup {
				return Layout{}, c.errorAt(errors.Compilef(errors.E2010, u.input,
					"operation index %d used twice", in.Index), in)
			}
			op, err := c.lower(i, j, u.input, in)
			if err != nil {
				return Layout{}, err
			}
			op.Offset = cursor
			l.ops[in.Index] = cursor
			cursor += 1 + op.Words()
			if op.Opcode.IsVariable() {
				cursor++
			}
			out = append(out, op)
		}
		container.Routines[i] = info
		container.RoutineOps[i] = out
		c.logger.Debug().Int("routine", i).Int("offset", info.Offset).Int("ops", len(out)).Msg("routine laid out")
	}
	return l, nil
}

// lower converts one input operation. routine and index locate the
// operation in the container; input is the routine's position in the
// caller's lists, used in errors.
func (c *Compiler) lower(routine, index, input int, in InputOp) (bytecode.Operation, error) {
	o, ok := c.provider.OpcodeByName(in.Name)
	if !ok {
		err := errors.Compilef(errors.E2002, input, "unknown opcode %s", in.Name)
		err.Opcode = in.Name
		if named, ok := c.provider.(interface{ OpcodeNames() []string }); ok {
			err.Suggestions = errors.SuggestSimilar(in.Name, named.OpcodeNames())
		}
		return bytecode.Operation{}, c.errorAt(err, in)
	}

	params := make([]bytecode.Param, 0, len(in.Params))
	raw := 0
	for k, p := range in.Params {
		isJump := o.JumpsToMemoryOffset && k == len(in.Params)-1
		param, err := c.lowerParam(o, raw, p, isJump)
		if err != nil {
			err.Routine = input
			err.Opcode = o.Name
			return bytecode.Operation{}, c.errorAt(err, in)
		}
		if isJump {
			c.fixups = append(c.fixups, fixup{routine: routine, input: input, op: index, param: k, label: param.Value})
		}
		params = append(params, param)
		raw += param.Words()
	}
	if !o.IsVariable() && raw != o.Params {
		err := errors.Compilef(errors.E2003, input, "%s takes %d argument words, got %d", o.Name, o.Params, raw)
		err.Opcode = o.Name
		return bytecode.Operation{}, c.errorAt(err, in)
	}
	if len(params) == 0 {
		params = nil
	}
	return bytecode.Operation{Opcode: o, Params: params}, nil
}

// lowerParam types one input parameter against the argument slot at raw
// word index raw. Jump parameters carry the logical target index until
// pass 2.
func (c *Compiler) lowerParam(o *schema.Opcode, raw int, p InputParam, isJump bool) (bytecode.Param, *errors.CompileError) {
	arg, hasArg := o.ArgumentAt(raw)
	mismatch := func() *errors.CompileError {
		want := "an untyped word"
		if hasArg {
			want = arg.Kind.String()
		}
		return errors.Compilef(errors.E2008, -1, "argument %d: %s does not fit %s", raw, p.Kind, want)
	}

	if isJump {
		switch p.Kind {
		case ParamLabel:
			return bytecode.Uint(p.Label), nil
		case ParamInt:
			return bytecode.Uint(p.Int), nil
		default:
			return bytecode.Param{}, mismatch()
		}
	}

	switch p.Kind {
	case ParamInt:
		if !hasArg {
			return bytecode.Raw(p.Int), nil
		}
		switch arg.Kind {
		case schema.ArgUint, schema.ArgSint14, schema.ArgSint16:
			if !bytecode.SintFits(p.Int, arg.Kind) {
				return bytecode.Param{}, errors.Compilef(errors.E2008, -1,
					"argument %d: %d is out of range for %s", raw, p.Int, arg.Kind)
			}
		}
		switch arg.Kind {
		case schema.ArgUint:
			return bytecode.Uint(p.Int), nil
		case schema.ArgSint14:
			return bytecode.Sint14(p.Int), nil
		case schema.ArgSint16:
			return bytecode.Sint16(p.Int), nil
		case schema.ArgEnum:
			if table, ok := c.provider.Enum(arg.Enum); ok {
				if e, ok := table.ByID(p.Int); ok {
					return bytecode.Enum(arg.Enum, e), nil
				}
			}
			return bytecode.Raw(p.Int), nil
		}
		return bytecode.Param{}, mismatch()

	case ParamEnum:
		if !hasArg || arg.Kind != schema.ArgEnum {
			return bytecode.Param{}, mismatch()
		}
		table, ok := c.provider.Enum(arg.Enum)
		if !ok {
			return bytecode.Param{}, errors.Compilef(errors.E2004, -1, "no enum table %s", arg.Enum)
		}
		e, ok := table.ByName(p.Name)
		if !ok {
			err := errors.Compilef(errors.E2004, -1, "undeclared %s constant %s", arg.Enum, p.Name)
			err.Constant = p.Name
			err.Suggestions = errors.SuggestSimilar(p.Name, table.Names())
			return bytecode.Param{}, err
		}
		return bytecode.Enum(arg.Enum, e), nil

	case ParamConst:
		if !hasArg || !arg.Kind.IsString() {
			return bytecode.Param{}, mismatch()
		}
		return bytecode.ConstString(c.constants.add(p.Text)), nil

	case ParamLocal:
		if !hasArg || arg.Kind != schema.ArgString {
			return bytecode.Param{}, mismatch()
		}
		if len(c.localized.languages) == 0 {
			return bytecode.Param{}, errors.Compilef(errors.E2008, -1,
				"region %s has no localized strings", c.cfg.region)
		}
		i, missing, ok := c.localized.add(p.Local)
		if !ok {
			return bytecode.Param{}, errors.Compilef(errors.E2008, -1,
				"argument %d: localized string has no %s text", raw, missing)
		}
		return bytecode.LocalString(i), nil

	case ParamPosition:
		if !hasArg || arg.Kind != schema.ArgPositionMarker {
			return bytecode.Param{}, mismatch()
		}
		return bytecode.Position(p.Position), nil
	}
	return bytecode.Param{}, mismatch()
}

// fixJumps is pass 2 for jump parameters.
func (c *Compiler) fixJumps(container *bytecode.Container, l Layout) error {
	for _, f := range c.fixups {
		op := &container.RoutineOps[f.routine][f.op]
		target, ok := l.Offset(f.label)
		if !ok {
			err := errors.Compilef(errors.E2007, f.input, "jump to unknown operation %d", f.label)
			err.Opcode = op.Name()
			return err
		}
		op.Params[f.param] = bytecode.Uint(target)
	}
	return nil
}

// remapSource is pass 2 for the source map.
func (c *Compiler) remapSource(l Layout) *bytecode.SourceMap {
	if c.source == nil {
		return bytecode.NewSourceMap()
	}
	out, missing := c.source.Remap(l.Offset)
	for _, index := range missing {
		c.logger.Warn().Int("index", index).Msg("source map entry for unknown operation dropped")
	}
	return out
}

// errorAt attaches the source position of in, if known.
func (c *Compiler) errorAt(err *errors.CompileError, in InputOp) *errors.CompileError {
	if c.source == nil {
		return err
	}
	if loc, ok := c.source.Get(in.Index); ok {
		err.Position = errors.SourcePosition{Line: loc.Line, Column: loc.Column}
	}
	return err
}
