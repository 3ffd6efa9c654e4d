package codec

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLayout(t *testing.T) {
	enc := Encode(5)
	assert.Equal(t, "0x00000005", enc.Data)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000005", enc.Proof)

	enc = Encode(math.MaxUint32)
	assert.Equal(t, "0xffffffff", enc.Data)
	assert.Len(t, enc.Proof, 2+2*WordSize)
}

func TestRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 2, 3, 255, 256, 65535, 65536, 1 << 31, math.MaxUint32 - 1, math.MaxUint32}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		values = append(values, rng.Uint32())
	}
	for _, v := range values {
		got, err := Decode(Encode(v).Data)
		require.NoError(t, err, "value %d", v)
		require.Equal(t, v, got)
	}
}

func TestDecodeAcceptsMissingPrefix(t *testing.T) {
	v, err := Decode("0000002a")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)

	v, err = Decode("0X0000002A")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)
}

func TestDecodeShorterAndWiderInputs(t *testing.T) {
	v, err := Decode("0x07")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v)

	// A proof word decodes to the same value as the data it accompanies.
	v, err = Decode(Encode(1234).Proof)
	require.NoError(t, err)
	assert.Equal(t, uint32(1234), v)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "prefix only", input: "0x"},
		{name: "odd length", input: "0x123"},
		{name: "not hex", input: "0xzz"},
		{name: "exceeds width", input: "0x0100000000"},
		{name: "exceeds word", input: "0x" + strings.Repeat("00", WordSize) + "01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestWord(t *testing.T) {
	s := FormatWord(1 << 40)
	got, err := ParseWord(s)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), got)

	_, err = ParseWord("0x010000000000000000")
	assert.ErrorIs(t, err, ErrDecode)
}
