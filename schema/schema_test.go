package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pmdscript/ssb/internal/testschema"
	"github.com/pmdscript/ssb/schema"
	"github.com/stretchr/testify/require"
)

func TestOpcodeLookup(t *testing.T) {
	s := testschema.Load(t)

	jump, ok := s.OpcodeByName("Jump")
	require.True(t, ok)
	require.Equal(t, uint16(0x02), jump.ID)
	require.True(t, jump.JumpsToMemoryOffset)
	require.True(t, jump.EndsFlow)
	require.Equal(t, 0, jump.JumpParam(1))

	byID, ok := s.OpcodeByID(0x02)
	require.True(t, ok)
	require.Same(t, jump, byID)

	_, ok = s.OpcodeByName("NoSuchOp")
	require.False(t, ok)
	_, ok = s.OpcodeByID(0x7FFF)
	require.False(t, ok)

	require.Equal(t, 18, s.OpcodeCount())
	require.Equal(t, "End", s.OpcodeNames()[0])
}

func TestArgumentAt(t *testing.T) {
	s := testschema.Load(t)

	menu, _ := s.OpcodeByName("message_SwitchMenu")
	require.True(t, menu.IsVariable())
	kinds := []schema.ArgKind{}
	for i := 0; i < 6; i++ {
		a, ok := menu.ArgumentAt(i)
		require.True(t, ok)
		kinds = append(kinds, a.Kind)
	}
	require.Equal(t, []schema.ArgKind{
		schema.ArgUint,
		schema.ArgString, schema.ArgUint,
		schema.ArgString, schema.ArgUint,
		schema.ArgString,
	}, kinds)

	move, _ := s.OpcodeByName("MovePositionMark")
	a, ok := move.ArgumentAt(1)
	require.True(t, ok)
	require.Equal(t, schema.ArgPositionMarker, a.Kind)
	_, ok = move.ArgumentAt(4)
	require.False(t, ok)

	set, _ := s.OpcodeByName("flag_Set")
	require.Equal(t, -1, set.JumpParam(2))
}

func TestEnumTables(t *testing.T) {
	s := testschema.Load(t)

	vars, ok := s.Enum("GameVar")
	require.True(t, ok)
	e, ok := vars.ByID(82)
	require.True(t, ok)
	require.Equal(t, "PERFORMANCE_PROGRESS_LIST", e.Name)
	e, ok = vars.ByName("CONDITION")
	require.True(t, ok)
	require.Equal(t, 1, e.ID)

	co, ok := s.Enum(schema.CoroutineEnum)
	require.True(t, ok)
	require.Equal(t, []string{"EVENT_DIVIDE", "EVENT_DIVIDE_FIRST", "GETOUT_SCENARIO_DUNGEON"}, co.Names())
	require.Len(t, s.Coroutines(), 3)
}

func TestParseArgKind(t *testing.T) {
	for _, k := range []schema.ArgKind{
		schema.ArgUint, schema.ArgSint14, schema.ArgSint16, schema.ArgEnum,
		schema.ArgConstString, schema.ArgString, schema.ArgPositionMarker,
	} {
		got, err := schema.ParseArgKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
	_, err := schema.ParseArgKind("float")
	require.Error(t, err)
	require.True(t, schema.ArgString.IsString())
	require.False(t, schema.ArgEnum.IsString())
}

func TestParseReportsAllProblems(t *testing.T) {
	_, err := schema.Parse([]byte(`
[[opcodes]]
id = 1
name = "A"
params = 1
arguments = [{ name = "x", type = "Enum", enum = "Missing" }]

[[opcodes]]
id = 1
name = "B"
params = 0

[[opcodes]]
id = 2
name = "C"
params = 0
jumps = true
`))
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, `unknown enum table "Missing"`)
	require.Contains(t, msg, "opcode id 0x1 used by A and B")
	require.Contains(t, msg, "C jumps but takes no parameters")
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := schema.Parse([]byte(`
[[opcodes]]
id = 1
name = "A"
params = 0
param_count = 3
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "param_count")
}

func TestParseRejectsDuplicateEnumEntries(t *testing.T) {
	_, err := schema.Parse([]byte(`
[enums]
Entity = [{ id = 0, name = "PLAYER" }, { id = 0, name = "PARTNER" }]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "enum Entity: id 0 defined twice")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.toml")
	require.NoError(t, os.WriteFile(path, testschema.Data(), 0o644))
	s, err := schema.Load(path)
	require.NoError(t, err)
	require.Equal(t, 18, s.OpcodeCount())

	_, err = schema.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
