// Package dis renders containers as human-readable listings. It is the
// first thing to reach for when a round trip or a flow comparison fails.
package dis

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pmdscript/ssb/bytecode"
)

// Instruction is one row of a listing.
type Instruction struct {
	Routine    int
	Offset     int
	Name       string
	Opcode     uint16
	Operands   []bytecode.Param
	Annotation string
	// Text is the resolved string of a string operand, if any.
	Text string
}

// Disassemble returns the instructions of every canonical routine of c in
// table order. Alias routines share their target's rows and are listed by
// PrintRoutines instead.
func Disassemble(c *bytecode.Container) ([]Instruction, error) {
	var instructions []Instruction
	for i, r := range c.Routines {
		if r.IsAlias() {
			continue
		}
		for _, o := range c.RoutineOps[i] {
			instr := Instruction{
				Routine:  i,
				Offset:   o.Offset,
				Name:     o.Name(),
				Operands: o.Params,
			}
			if o.Opcode != nil {
				instr.Opcode = o.Opcode.ID
			}
			if target, ok := o.JumpTarget(); ok {
				instr.Annotation = fmt.Sprintf("-> 0x%04x", target)
			}
			for _, p := range o.Params {
				if !p.IsString() {
					continue
				}
				text, err := resolve(c, p)
				if err != nil {
					return nil, fmt.Errorf("routine %d, offset 0x%x: %w", i, o.Offset, err)
				}
				instr.Text = text
				break
			}
			instructions = append(instructions, instr)
		}
	}
	return instructions, nil
}

func resolve(c *bytecode.Container, p bytecode.Param) (string, error) {
	if p.Kind == bytecode.ParamConstString {
		if p.Value < 0 || p.Value >= len(c.Constants) {
			return "", fmt.Errorf("constant index out of range: %d", p.Value)
		}
		return c.Constants[p.Value], nil
	}
	langs := c.Region.Languages()
	if len(langs) == 0 {
		return "", fmt.Errorf("region %s has no localized strings", c.Region)
	}
	pool := c.Strings[langs[0]]
	if p.Value < 0 || p.Value >= len(pool) {
		return "", fmt.Errorf("string index out of range: %d", p.Value)
	}
	return pool[p.Value], nil
}

var (
	bold    = color.New(color.Bold).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	cyan    = color.New(color.FgHiCyan).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
)

// Print writes the instructions as a table. Colors follow color.NoColor.
func Print(instructions []Instruction, w io.Writer) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Routine", "Offset", "Opcode", "Operands", "Info"})
	for _, instr := range instructions {
		var info string
		switch {
		case instr.Text != "":
			s := instr.Text
			if utf8.RuneCountInString(s) > 60 {
				s = text.Trim(s, 57) + "..."
			}
			info = green(fmt.Sprintf("%q", s))
		case instr.Annotation != "":
			info = cyan(instr.Annotation)
		}
		t.AppendRow(table.Row{
			instr.Routine,
			fmt.Sprintf("0x%04x", instr.Offset),
			bold(instr.Name),
			formatOperands(instr.Operands),
			info,
		})
	}
	t.Render()
}

// PrintRoutines writes the routine table of c.
func PrintRoutines(c *bytecode.Container, w io.Writer) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Routine", "Kind", "Linked", "Offset", "Ops"})
	for i, r := range c.Routines {
		ops := fmt.Sprintf("%d", len(c.OpsFor(i)))
		if r.IsAlias() {
			ops = magenta(fmt.Sprintf("alias of %d", r.AliasOf))
		}
		t.AppendRow(table.Row{i, r.Kind, r.LinkedTo, fmt.Sprintf("0x%04x", r.Offset), ops})
	}
	t.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
	})
	return t
}

func formatOperands(params []bytecode.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}
