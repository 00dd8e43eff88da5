package dis_test

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/pmdscript/ssb/bytecode"
	"github.com/pmdscript/ssb/compiler"
	"github.com/pmdscript/ssb/dis"
	"github.com/pmdscript/ssb/internal/testschema"
	"github.com/stretchr/testify/require"
)

func noColor(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })
}

func sample(t *testing.T) *bytecode.Container {
	t.Helper()
	s := testschema.Load(t)
	ops := [][]compiler.InputOp{
		{
			{Index: 0, Name: "debug_Print", Params: []compiler.InputParam{compiler.Const("hello")}},
			{Index: 1, Name: "message_Talk", Params: []compiler.InputParam{
				compiler.Local(map[bytecode.Language]string{bytecode.English: "Hi there"}),
			}},
			{Index: 2, Name: "Jump", Params: []compiler.InputParam{compiler.Label(0)}},
		},
		nil,
	}
	routines := []*bytecode.RoutineInfo{
		{Kind: bytecode.RoutineGeneric},
		{Kind: bytecode.RoutineActor, LinkedTo: 2},
	}
	res, err := compiler.Assemble(s, routines, []string{"", ""}, ops, nil)
	require.NoError(t, err)
	return res.Container
}

func TestDisassemble(t *testing.T) {
	instructions, err := dis.Disassemble(sample(t))
	require.NoError(t, err)
	require.Len(t, instructions, 3)

	require.Equal(t, dis.Instruction{
		Routine:  0,
		Offset:   8,
		Name:     "debug_Print",
		Opcode:   0x0A,
		Operands: []bytecode.Param{bytecode.ConstString(0)},
		Text:     "hello",
	}, instructions[0])
	require.Equal(t, "Hi there", instructions[1].Text)
	require.Equal(t, 10, instructions[1].Offset)
	require.Equal(t, "Jump", instructions[2].Name)
	require.Equal(t, "-> 0x0008", instructions[2].Annotation)
	require.Empty(t, instructions[2].Text)
}

func TestPrint(t *testing.T) {
	noColor(t)
	instructions, err := dis.Disassemble(sample(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	dis.Print(instructions, &buf)
	out := buf.String()
	require.Contains(t, out, "ROUTINE")
	require.Contains(t, out, "OPCODE")
	require.Contains(t, out, "debug_Print")
	require.Contains(t, out, "const#0")
	require.Contains(t, out, `"hello"`)
	require.Contains(t, out, "string#0")
	require.Contains(t, out, "-> 0x0008")
	require.NotContains(t, out, "\x1b[")
}

func TestPrintRoutines(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	dis.PrintRoutines(sample(t), &buf)
	out := buf.String()
	require.Contains(t, out, "generic")
	require.Contains(t, out, "actor")
	require.Contains(t, out, "alias of 0")
}

func TestDisassembleRejectsDanglingString(t *testing.T) {
	c := sample(t)
	c.RoutineOps[0][0].Params = []bytecode.Param{bytecode.ConstString(4)}
	_, err := dis.Disassemble(c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "constant index out of range: 4")
	require.Contains(t, err.Error(), "routine 0, offset 0x8")
}

func TestPrintTruncatesOnRuneBoundary(t *testing.T) {
	noColor(t)
	long := strings.Repeat("é", 70)
	var buf bytes.Buffer
	dis.Print([]dis.Instruction{{Name: "debug_Print", Text: long}}, &buf)
	out := buf.String()
	require.True(t, utf8.ValidString(out))
	require.Contains(t, out, `"`+strings.Repeat("é", 57)+`..."`)
	require.NotContains(t, out, strings.Repeat("é", 58))
}
