package demod

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bemasher/omnidemod/gen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseRepresentation(t *testing.T) {
	cases := []struct {
		name string
		rep  Representation
	}{
		{"compressed", Compressed},
		{"C", Compressed},
		{"NRZ", NRZ},
		{"nrz", NRZ},
		{"StrictManchester", ManchesterStrict},
		{"s", ManchesterStrict},
		{"Manchester", Manchester},
		{"m", Manchester},
		{"Decode", Decode},
		{"dump", Decode},
	}

	for _, c := range cases {
		rep, err := ParseRepresentation(c.name)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.rep, rep, c.name)
	}

	for _, name := range []string{"", "x", "hex", " m"} {
		_, err := ParseRepresentation(name)
		assert.ErrorIs(t, err, ErrUnknownRepresentation, name)
	}
}

func TestParseRepresentationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.String().Draw(t, "name")

		rep, err := ParseRepresentation(name)

		lower := strings.ToLower(name)
		idx := -1
		if lower != "" {
			idx = strings.IndexByte("cnsmd", lower[0])
		}

		if idx == -1 {
			if err == nil {
				t.Fatalf("expected error for %q", name)
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", name, err)
		}
		if rep != Representation(idx) {
			t.Fatalf("%q: expected %d got %d", name, idx, rep)
		}
	})
}

func TestRepresentationText(t *testing.T) {
	text, err := Decode.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "decode", string(text))
	assert.Equal(t, "unknown", Representation(-1).String())
}

func TestGlyphs(t *testing.T) {
	all := []Symbol{0, 1, 2, 3, 4, 5, 6, 7, 8}
	assert.Equal(t, "_-v^_v-^_v_-^-*", CompressedString(all))
	assert.Equal(t, "01v^0v1^0v01^1*", NRZString(all))
}

func TestManchesterDecode(t *testing.T) {
	cases := []struct {
		symbols  []Symbol
		expected string
	}{
		{[]Symbol{1, 0, 0, 1}, "10"},
		{[]Symbol{1, 1, 0}, "*1"},
		{[]Symbol{0, 0, 1}, "*0"},
		{[]Symbol{0, 1, 5, 0}, "0^1"},
		{[]Symbol{0, 7, 0}, "0^1"},
		{[]Symbol{1, 6, 1}, "1v0"},
		{[]Symbol{2, 0, 1}, "v0"},
		{[]Symbol{3, 1, 0}, "^1"},
		{[]Symbol{0, 2, 1, 0}, "#v1"},
		{[]Symbol{4, 1}, "v0"},
		{[]Symbol{6, 3, 1, 0}, "*^1"},
		{[]Symbol{7, 0}, "*^1"},
		{[]Symbol{9, 0}, "X"},
		{[]Symbol{0, 9, 1, 0}, "X1"},
		{[]Symbol{1}, ""},
		{nil, ""},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, ManchesterDecode(c.symbols), "%d", c.symbols)
	}
}

func TestManchesterDecodeDoesNotModify(t *testing.T) {
	symbols := []Symbol{0, 7, 0}
	ManchesterDecode(symbols)
	assert.Equal(t, []Symbol{0, 7, 0}, symbols)
}

// Encoding then decoding clean bits returns the bits.
func TestManchesterRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.SliceOfN(rapid.ByteRange(0, 1), 1, 512).Draw(t, "bits")

		var symbols []Symbol
		for _, c := range gen.Manchester(bits) {
			symbols = append(symbols, Symbol(c))
		}

		expected := gen.Chips(bits)
		if recv := ManchesterDecode(symbols); recv != expected {
			t.Fatalf("expected %q got %q", expected, recv)
		}
	})
}

func TestManchesterDecodeLimit(t *testing.T) {
	symbols := make([]Symbol, 3*MaxData)
	for idx := range symbols {
		symbols[idx] = Symbol(idx & 1)
	}
	assert.Len(t, ManchesterDecode(symbols), MaxData-2)
}

func strictSymbols(tail ...Symbol) []Symbol {
	return append(append([]Symbol{1, 0}, StrictPreamble...), tail...)
}

func TestStrictDecode(t *testing.T) {
	assert.Equal(t, "011", StrictDecode(strictSymbols(HighHalf, 0, 1, 1, 0, 1, 0)))

	// The end symbol merged with a leading high.
	assert.Equal(t, "10", StrictDecode(strictSymbols(HighHalfHigh, 0, 0, 1)))

	// Stops at a violation.
	assert.Equal(t, "0", StrictDecode(strictSymbols(HighHalf, 0, 1, 3, 1, 0)))

	// Skips a bit with no phase change.
	assert.Equal(t, "0", StrictDecode(strictSymbols(HighHalf, 1, 1, 0, 1)))

	assert.Empty(t, StrictDecode(strictSymbols(High, 0, 1)))
	assert.Empty(t, StrictDecode(StrictPreamble))
	assert.Empty(t, StrictDecode(StrictPreamble[:10]))
}

func TestHexBytes(t *testing.T) {
	cases := []struct {
		data, expected string
	}{
		{"1010010111000010", "a5c2"},
		{"1", "80"},
		{"0^1", "00 ^ 80"},
		{"^1", "^ 80"},
		{strings.Repeat("11110000", 5), "f0f0f0f0 f0"},
		{"1111000011110000v1", "f0f0 v 80"},
		{"", ""},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, HexBytes(c.data), c.data)
	}
}

func TestHexWords(t *testing.T) {
	assert.Equal(t, "80000000", HexWords("1"))
	assert.Equal(t, "deadbeef 80000000", HexWords("11011110101011011011111011101111"+"1"))
	assert.Equal(t, "", HexWords(""))
}

func TestParseMessage(t *testing.T) {
	assert.Nil(t, ParseMessage("0101010101"))

	msg := ParseMessage("10" + MessagePreamble + "1" + "01")
	require.NotNil(t, msg)
	assert.False(t, msg.Complete)
	assert.Equal(t, "P: 1 1", msg.String())

	msg = ParseMessage(MessagePreamble + "1" + "0*" + "00011")
	require.NotNil(t, msg)
	assert.False(t, msg.Complete)
	assert.Equal(t, "P: 1 X 03", msg.String())
	assert.False(t, msg.Fields[1].Valid)

	data := MessagePreamble + "0" + "10" + "11111" +
		strings.Repeat("0", 31) + "1" +
		strings.Repeat("1", 32) +
		"00*" + strings.Repeat("0", 29) +
		strings.Repeat("10", 16) +
		strings.Repeat("1", 16) +
		"1000" + "0100" + "0010" + "0001"

	msg = ParseMessage(data)
	require.NotNil(t, msg)
	assert.True(t, msg.Complete)
	assert.Equal(t, "P: 0 2 1f 00000001 ffffffff XXXXXXXX aaaaaaaa ffff 8 4 2 1 !", msg.String())
}

func TestReadBits(t *testing.T) {
	value, next, missing := readBits("0110", 0, 3)
	assert.Equal(t, uint32(3), value)
	assert.Equal(t, 3, next)
	assert.Zero(t, missing)

	_, next, missing = readBits("1*01", 0, 3)
	assert.Equal(t, 3, next)
	assert.Equal(t, 2, missing)

	_, _, missing = readBits("01", 0, 3)
	assert.Equal(t, -1, missing)
}

func TestPlainEncoder(t *testing.T) {
	buf := &bytes.Buffer{}
	enc := NewPlainEncoder(buf)
	enc.ShowSamples = true
	enc.ShowPower = true

	b := Burst{
		Start:          123456,
		Interval:       12.34,
		Power:          0.52,
		Representation: Manchester,
		Hex:            "00 ^ 80",
		Data:           "0^10011",
	}
	require.NoError(t, enc.Encode(b))
	assert.Equal(t, "sample:    123456 (12.3ms)\tpower: 0.5:\t00 ^ 80:\t0 ^ 1001 1\n", buf.String())

	buf.Reset()
	b.Representation = Compressed
	b.Hex = ""
	b.Data = "-_v"
	require.NoError(t, enc.Encode(b))
	assert.Equal(t, "sample:    123456 (12.3ms)\tpower: 0.5\t-_v\n", buf.String())

	assert.Error(t, enc.Encode("not a burst"))
}

func TestParseReportFormat(t *testing.T) {
	for _, f := range []ReportFormat{FormatPlain, FormatJSON, FormatCSV} {
		parsed, err := ParseReportFormat(strings.ToUpper(f.String()))
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}

	_, err := ParseReportFormat("xml")
	assert.Error(t, err)
}
