package bytecode_test

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/pmdscript/ssb/bytecode"
	sserrors "github.com/pmdscript/ssb/errors"
	"github.com/pmdscript/ssb/internal/testschema"
	"github.com/pmdscript/ssb/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// usFixture is a US container with one routine (message_Talk, End), one
// constant "C" and one English string "Hi".
var usFixture = []byte{
	0x01, 0x00, 0x01, 0x00, 0x08, 0x00, 0x02, 0x00, 0x03, 0x00, 0x00, 0x00, // header
	0x08, 0x00, 0x01, 0x00, // stream header
	0x05, 0x00, 0x01, 0x00, 0x00, 0x00, // routine table
	0x09, 0x00, 0x01, 0x00, 0x00, 0x00, // message_Talk string#0; End
	0x04, 0x00, 'C', 0x00, // constants
	0x06, 0x00, 'H', 'i', 0x00, 0xAA, // English
}

type builder struct {
	t testing.TB
	s schema.Provider
}

func newBuilder(t testing.TB) *builder {
	return &builder{t: t, s: testschema.Load(t)}
}

func (b *builder) op(name string, params ...bytecode.Param) bytecode.Operation {
	o, ok := b.s.OpcodeByName(name)
	require.True(b.t, ok, name)
	return bytecode.Operation{Opcode: o, Params: params}
}

func (b *builder) enum(table, name string) bytecode.Param {
	et, ok := b.s.Enum(table)
	require.True(b.t, ok, table)
	e, ok := et.ByName(name)
	require.True(b.t, ok, name)
	return bytecode.Enum(table, e)
}

func clone(data []byte) []byte {
	return append([]byte(nil), data...)
}

func codeOf(t *testing.T, err error) sserrors.ErrorCode {
	t.Helper()
	var e *sserrors.Error
	require.True(t, stderrors.As(err, &e), "not an *errors.Error: %v", err)
	return e.Code
}

func TestDecodeFixture(t *testing.T) {
	s := testschema.Load(t)
	c, err := bytecode.Decode(usFixture, s)
	require.NoError(t, err)

	require.Equal(t, bytecode.RegionUS, c.Region)
	require.Equal(t, []bytecode.RoutineInfo{
		{Kind: bytecode.RoutineGeneric, Offset: 5, AliasOf: -1},
	}, c.Routines)
	require.Len(t, c.RoutineOps, 1)
	ops := c.RoutineOps[0]
	require.Len(t, ops, 2)
	require.Equal(t, "message_Talk", ops[0].Name())
	require.Equal(t, 5, ops[0].Offset)
	require.Equal(t, []bytecode.Param{bytecode.LocalString(0)}, ops[0].Params)
	require.Equal(t, "End", ops[1].Name())
	require.Equal(t, 7, ops[1].Offset)
	require.Equal(t, []string{"C"}, c.Constants)
	require.Equal(t, []string{"Hi"}, c.Strings[bytecode.English])
	require.Equal(t, []uint16{0}, c.Reserved)

	out, err := bytecode.Encode(c)
	require.NoError(t, err)
	require.Equal(t, usFixture, out)
}

func TestDecodeMalformed(t *testing.T) {
	s := testschema.Load(t)
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		code   sserrors.ErrorCode
	}{
		{"bad pad byte", func(b []byte) []byte { b[37] = 0x00; return b }, sserrors.E1005},
		{"trailing data", func(b []byte) []byte { return append(b, 0x00, 0x00) }, sserrors.E1008},
		{"header disagrees", func(b []byte) []byte { b[4] = 0x09; return b }, sserrors.E1006},
		{"unknown opcode", func(b []byte) []byte { b[22] = 0x7F; return b }, sserrors.E1003},
		{"string not contiguous", func(b []byte) []byte { b[32] = 0x07; return b }, sserrors.E1007},
		{"constant length mismatch", func(b []byte) []byte { b[6] = 0x03; return b }, sserrors.E1002},
		{"routine start mismatch", func(b []byte) []byte { b[16] = 0x06; return b }, sserrors.E1002},
		{"short header", func(b []byte) []byte { return b[:10] }, sserrors.E1001},
		{"truncated strings", func(b []byte) []byte { return b[:34] }, sserrors.E1001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bytecode.Decode(tt.mutate(clone(usFixture)), s)
			require.Error(t, err)
			require.ErrorIs(t, err, sserrors.ErrMalformedContainer)
			require.Equal(t, tt.code, codeOf(t, err))
		})
	}
}

func TestDecodeErrorCarriesContext(t *testing.T) {
	s := testschema.Load(t)
	data := clone(usFixture)
	data[22] = 0x7F
	_, err := bytecode.Decode(data, s)
	require.Error(t, err)
	require.Contains(t, err.Error(), "routine 0")
	require.Contains(t, err.Error(), "offset 0x16")
	require.Contains(t, err.Error(), "unknown opcode id 0x7f")
}

func TestRoundTripAllParamKinds(t *testing.T) {
	b := newBuilder(t)
	c := bytecode.NewContainer(bytecode.RegionUS)
	c.Constants = []string{"dbg", "other"}
	c.Strings[bytecode.English] = []string{"Hello", "Yes", "No"}
	c.Routines = []bytecode.RoutineInfo{{Kind: bytecode.RoutineGeneric, AliasOf: -1}}
	c.RoutineOps = [][]bytecode.Operation{{
		b.op("flag_CalcValue", b.enum("GameVar", "SCENARIO_MAIN"), b.enum("CalcOperator", "ADD"), bytecode.Sint14(-5)),
		b.op("MoveOffset", bytecode.Sint16(-300), bytecode.Sint16(12)),
		b.op("MovePositionMark", bytecode.Uint(2), bytecode.Position(bytecode.PositionMarker{
			XOffset: 10, YOffset: 20, XRelative: 1, YRelative: 0,
		})),
		b.op("debug_Print", bytecode.ConstString(1)),
		b.op("message_SwitchMenu",
			bytecode.Uint(0),
			bytecode.LocalString(1), bytecode.Uint(1),
			bytecode.LocalString(2), bytecode.Uint(2),
		),
		b.op("CallCommon", b.enum(schema.CoroutineEnum, "EVENT_DIVIDE_FIRST")),
		b.op("End"),
	}}

	out, err := bytecode.Encode(c)
	require.NoError(t, err)
	got, err := bytecode.Decode(out, b.s)
	require.NoError(t, err)

	ops := got.RoutineOps[0]
	require.Len(t, ops, 7)
	for i := range ops {
		require.Equal(t, c.RoutineOps[0][i].Params, ops[i].Params, "operation %d", i)
		require.Same(t, c.RoutineOps[0][i].Opcode, ops[i].Opcode)
	}
	require.Equal(t, c.Constants, got.Constants)
	require.Equal(t, c.Strings, got.Strings)

	again, err := bytecode.Encode(got)
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestSignRoundTrip(t *testing.T) {
	for v := -0x4000; v < 0x4000; v++ {
		enc := bytecode.EncodeSint(v, schema.ArgSint14)
		require.GreaterOrEqual(t, enc, 0)
		require.Less(t, enc, 0x8000)
		require.Equal(t, v, bytecode.DecodeSint14(uint16(enc)))
	}
	for v := -0x8000; v < 0x8000; v++ {
		enc := bytecode.EncodeSint(v, schema.ArgSint16)
		require.GreaterOrEqual(t, enc, 0)
		require.LessOrEqual(t, enc, 0xFFFF)
		require.Equal(t, v, bytecode.DecodeSint16(uint16(enc)))
	}
}

func TestSint14PassthroughAboveRange(t *testing.T) {
	for _, raw := range []uint16{0x8000, 0xC000, 0xFFFF} {
		v := bytecode.DecodeSint14(raw)
		require.Equal(t, int(raw), v)
		require.Equal(t, int(raw), bytecode.EncodeSint(v, schema.ArgSint14))
	}
	require.Equal(t, -0x4000, bytecode.DecodeSint14(0x4000))
	require.Equal(t, 0x3FFF, bytecode.DecodeSint14(0x3FFF))
}

func TestStringRefRoundTrip(t *testing.T) {
	for constCount := 0; constCount < 40; constCount++ {
		for i := 0; i < 40; i++ {
			local := bytecode.LocalString(i)
			raw := bytecode.EncodeStringRef(local, constCount)
			require.Equal(t, local, bytecode.DecodeStringRef(uint16(raw), constCount))
			if i < constCount {
				cs := bytecode.ConstString(i)
				raw = bytecode.EncodeStringRef(cs, constCount)
				require.Equal(t, cs, bytecode.DecodeStringRef(uint16(raw), constCount))
			}
		}
	}
}

func TestAliasRoutines(t *testing.T) {
	b := newBuilder(t)
	c := bytecode.NewContainer(bytecode.RegionUS)
	c.Routines = []bytecode.RoutineInfo{
		{Kind: bytecode.RoutineGeneric, AliasOf: -1},
		{Kind: bytecode.RoutineActor, LinkedTo: 3, AliasOf: 0},
		{Kind: bytecode.RoutineObject, LinkedTo: 7, AliasOf: -1},
		{Kind: bytecode.RoutinePerformer, LinkedTo: 1, AliasOf: -1},
	}
	c.RoutineOps = [][]bytecode.Operation{
		{b.op("Wait", bytecode.Uint(30)), b.op("End")},
		nil,
		{b.op("Stop")},
		nil,
	}
	out, err := bytecode.Encode(c)
	require.NoError(t, err)

	// Routine table entries start after the 12 byte header and 4 byte
	// stream header; the first word of each is the start offset.
	entry := func(i int) []byte { return out[16+6*i : 16+6*i+2] }
	require.Equal(t, entry(0), entry(1))
	require.Equal(t, entry(2), entry(3))
	require.NotEqual(t, entry(0), entry(2))

	got, err := bytecode.Decode(out, b.s)
	require.NoError(t, err)
	require.Equal(t, -1, got.Routines[0].AliasOf)
	require.Equal(t, 0, got.Routines[1].AliasOf)
	require.Equal(t, 2, got.Routines[3].AliasOf)
	require.Empty(t, got.RoutineOps[1])
	require.Empty(t, got.RoutineOps[3])
	require.Equal(t, got.Routines[0].Offset, got.Routines[1].Offset)
	require.Equal(t, uint16(3), got.Routines[1].LinkedTo)
	require.True(t, got.Routines[1].Kind.HasTarget())
	require.Len(t, got.OpsFor(1), 2)
	require.Equal(t, 2, got.Canonical(3))

	again, err := bytecode.Encode(got)
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestEncodeRejectsBadLayout(t *testing.T) {
	b := newBuilder(t)
	c := bytecode.NewContainer(bytecode.RegionUS)
	c.Routines = []bytecode.RoutineInfo{{AliasOf: -1}}
	c.RoutineOps = [][]bytecode.Operation{nil}
	_, err := bytecode.Encode(c)
	require.Error(t, err)
	require.Equal(t, sserrors.E3005, codeOf(t, err))

	c.RoutineOps = [][]bytecode.Operation{{b.op("Wait")}}
	_, err = bytecode.Encode(c)
	require.Error(t, err)
	require.Equal(t, sserrors.E3006, codeOf(t, err))

	c.RoutineOps = [][]bytecode.Operation{{b.op("Wait", bytecode.Uint(0x10000))}}
	_, err = bytecode.Encode(c)
	require.Error(t, err)
	require.Equal(t, sserrors.E3002, codeOf(t, err))
	require.Contains(t, err.Error(), "opcode Wait")
}

func TestUnknownEnumIsKeptRaw(t *testing.T) {
	s := testschema.Load(t)
	b := newBuilder(t)
	c := bytecode.NewContainer(bytecode.RegionJP)
	c.Routines = []bytecode.RoutineInfo{{Kind: bytecode.RoutineGeneric, AliasOf: -1}}
	c.RoutineOps = [][]bytecode.Operation{{
		b.op("flag_Set", bytecode.Raw(99), bytecode.Sint14(1)),
		b.op("End"),
	}}
	out, err := bytecode.Encode(c)
	require.NoError(t, err)

	var logs bytes.Buffer
	got, err := bytecode.Decode(out, s,
		bytecode.WithRegion(bytecode.RegionJP),
		bytecode.WithLogger(zerolog.New(&logs)))
	require.NoError(t, err)
	require.Equal(t, bytecode.Raw(99), got.RoutineOps[0][0].Params[0])
	require.Contains(t, logs.String(), `"level":"warn"`)
	require.Contains(t, logs.String(), `"enum":"GameVar"`)
	require.Contains(t, logs.String(), `"raw":99`)
	require.Contains(t, logs.String(), `"error":"`)
	require.Contains(t, logs.String(), "no GameVar with id 99")

	again, err := bytecode.Encode(got)
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestEURoundTrip(t *testing.T) {
	b := newBuilder(t)
	c := bytecode.NewContainer(bytecode.RegionEU)
	c.Constants = []string{"A", "BB", "CCC"}
	c.Strings = map[bytecode.Language][]string{
		bytecode.English: {"Hello", "Bye"},
		bytecode.French:  {"Bonjour", "Salut"},
		bytecode.German:  {"Hallo", "Tschüss"},
		bytecode.Italian: {"Ciao", "Ciao"},
		bytecode.Spanish: {"Hola", "Adiós"},
	}
	c.Routines = []bytecode.RoutineInfo{{Kind: bytecode.RoutineGeneric, AliasOf: -1}}
	c.RoutineOps = [][]bytecode.Operation{{
		b.op("message_Talk", bytecode.LocalString(1)),
		b.op("debug_Print", bytecode.ConstString(2)),
		b.op("End"),
	}}
	out, err := bytecode.Encode(c)
	require.NoError(t, err)
	require.Zero(t, len(out)%2)

	got, err := bytecode.Decode(out, b.s, bytecode.WithRegion(bytecode.RegionEU))
	require.NoError(t, err)
	require.Equal(t, c.Strings, got.Strings)
	require.Equal(t, c.Constants, got.Constants)
	require.Equal(t, bytecode.LocalString(1), got.RoutineOps[0][0].Params[0])

	h, err := bytecode.ParseHeader(out, bytecode.RegionEU)
	require.NoError(t, err)
	require.Equal(t, 3, h.ConstantCount)
	require.Equal(t, 2, h.StringCount)
	require.Len(t, h.StringLengths, 5)

	again, err := bytecode.Encode(got)
	require.NoError(t, err)
	require.Equal(t, out, again)

	// Decoding as the wrong region must not silently succeed.
	_, err = bytecode.Decode(out, b.s, bytecode.WithRegion(bytecode.RegionUS))
	require.ErrorIs(t, err, sserrors.ErrMalformedContainer)
}

func TestUnevenLanguageStrings(t *testing.T) {
	b := newBuilder(t)
	c := bytecode.NewContainer(bytecode.RegionEU)
	for _, lang := range bytecode.RegionEU.Languages() {
		c.Strings[lang] = []string{"x"}
	}
	c.Strings[bytecode.German] = nil
	c.Routines = []bytecode.RoutineInfo{{AliasOf: -1}}
	c.RoutineOps = [][]bytecode.Operation{{b.op("End")}}

	_, err := bytecode.Encode(c)
	require.ErrorIs(t, err, sserrors.ErrUnevenLanguageStrings)

	delete(c.Strings, bytecode.German)
	_, err = bytecode.Encode(c)
	require.ErrorIs(t, err, sserrors.ErrUnevenLanguageStrings)
	require.Contains(t, err.Error(), "requires German strings")

	us := bytecode.NewContainer(bytecode.RegionUS)
	us.Strings[bytecode.French] = []string{"Bonjour"}
	us.Routines = c.Routines
	us.RoutineOps = c.RoutineOps
	_, err = bytecode.Encode(us)
	require.ErrorIs(t, err, sserrors.ErrUnevenLanguageStrings)
}

func TestJPReservedWordsSurvive(t *testing.T) {
	b := newBuilder(t)
	c := bytecode.NewContainer(bytecode.RegionJP)
	c.Reserved = []uint16{0x1234, 0xBEEF, 0x0007}
	c.Constants = []string{"odd"}
	c.Routines = []bytecode.RoutineInfo{{Kind: bytecode.RoutineCoroutine, AliasOf: -1}}
	c.RoutineOps = [][]bytecode.Operation{{b.op("debug_Print", bytecode.ConstString(0)), b.op("Return")}}

	out, err := bytecode.Encode(c)
	require.NoError(t, err)
	got, err := bytecode.Decode(out, b.s, bytecode.WithRegion(bytecode.RegionJP))
	require.NoError(t, err)
	require.Equal(t, c.Reserved, got.Reserved)
	require.Equal(t, []string{"odd"}, got.Constants)
	require.Equal(t, bytecode.RoutineCoroutine, got.Routines[0].Kind)
	require.Equal(t, 0, got.StringCount())
}

func TestCodecRejectsNUL(t *testing.T) {
	b := newBuilder(t)
	c := bytecode.NewContainer(bytecode.RegionUS)
	c.Constants = []string{"bad\x00text"}
	c.Routines = []bytecode.RoutineInfo{{AliasOf: -1}}
	c.RoutineOps = [][]bytecode.Operation{{b.op("End")}}
	_, err := bytecode.Encode(c)
	require.ErrorIs(t, err, sserrors.ErrInternal)
	require.Equal(t, sserrors.E3003, codeOf(t, err))
}

func TestWindows1252Text(t *testing.T) {
	enc, err := bytecode.Windows1252.Encode("Pokémon")
	require.NoError(t, err)
	require.Equal(t, []byte{'P', 'o', 'k', 0xE9, 'm', 'o', 'n'}, enc)
	dec, err := bytecode.Windows1252.Decode(enc)
	require.NoError(t, err)
	require.Equal(t, "Pokémon", dec)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := testschema.Load(t)
	c, err := bytecode.Decode(usFixture, s)
	require.NoError(t, err)

	data, err := bytecode.MarshalSnapshot(c)
	require.NoError(t, err)
	again, err := bytecode.MarshalSnapshot(c.Clone())
	require.NoError(t, err)
	require.Equal(t, data, again)

	got, err := bytecode.UnmarshalSnapshot(data, s)
	require.NoError(t, err)
	require.Equal(t, c, got)

	out, err := bytecode.Encode(got)
	require.NoError(t, err)
	require.Equal(t, usFixture, out)
}

func TestSourceMapRemap(t *testing.T) {
	m := bytecode.NewSourceMap()
	m.Add(0, bytecode.SourceLocation{Line: 1, Column: 1})
	m.Add(2, bytecode.SourceLocation{Line: 3, Column: 5})
	m.Add(9, bytecode.SourceLocation{Line: 4, Column: 1})

	out, missing := m.Remap(func(k int) (int, bool) {
		if k == 9 {
			return 0, false
		}
		return 100 + k, true
	})
	require.Equal(t, []int{9}, missing)
	require.Equal(t, []int{100, 102}, out.Keys())
	loc, ok := out.Get(102)
	require.True(t, ok)
	require.Equal(t, "3:5", loc.String())
}

func TestWindows1252BytesRoundTrip(t *testing.T) {
	for b := 0x01; b <= 0xFF; b++ {
		in := []byte{byte(b)}
		dec, err := bytecode.Windows1252.Decode(in)
		if err != nil {
			require.Contains(t, []int{0x81, 0x8D, 0x8F, 0x90, 0x9D}, b, "byte 0x%02x", b)
			continue
		}
		enc, err := bytecode.Windows1252.Encode(dec)
		require.NoError(t, err, "byte 0x%02x", b)
		require.Equal(t, in, enc, "byte 0x%02x", b)
	}
}

func TestDecodeRejectsUnmappedText(t *testing.T) {
	data := append([]byte(nil), usFixture...)
	require.Equal(t, byte('C'), data[32])
	data[32] = 0x81
	_, err := bytecode.Decode(data, testschema.Load(t))
	require.ErrorIs(t, err, sserrors.ErrMalformedContainer)
	require.Equal(t, sserrors.E1009, codeOf(t, err))
}

func TestEncodeRejectsSignedOverflow(t *testing.T) {
	b := newBuilder(t)
	for _, p := range []bytecode.Param{bytecode.Sint14(0x5000), bytecode.Sint14(-0x4001), bytecode.Sint16(0x8000)} {
		c := bytecode.NewContainer(bytecode.RegionJP)
		c.Routines = []bytecode.RoutineInfo{{Kind: bytecode.RoutineGeneric, AliasOf: -1}}
		c.RoutineOps = [][]bytecode.Operation{{
			b.op("flag_Set", b.enum("GameVar", "VERSION"), p),
			b.op("End"),
		}}
		_, err := bytecode.Encode(c)
		require.ErrorIs(t, err, sserrors.ErrInternal, "%v", p)
		require.Equal(t, sserrors.E3002, codeOf(t, err))
	}
}
