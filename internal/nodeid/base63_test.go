package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode_Zero(t *testing.T) {
	assert.Equal(t, "A", Encode(0))
}

func TestEncode_SingleDigits(t *testing.T) {
	tests := []struct {
		value    uint64
		expected string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "a"},
		{51, "z"},
		{52, "0"},
		{61, "9"},
		{62, "_"},
	}
	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, Encode(tc.value))
		})
	}
}

func TestEncode_MultiDigit(t *testing.T) {
	tests := []struct {
		value    uint64
		expected string
	}{
		{63, "BA"},
		{64, "BB"},
		{125, "B_"},
		{126, "CA"},
		{3969, "BAA"},
	}
	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, Encode(tc.value))
		})
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 62, 63, 3969, 1 << 40, ^uint64(0)} {
		encoded := Encode(v)
		decoded, err := Decode(encoded)
		assert.NoError(t, err)
		assert.Equal(t, v, decoded)
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode("")
	assert.ErrorIs(t, err, ErrEmptyString)

	_, err = Decode("!!")
	assert.ErrorIs(t, err, ErrInvalidChar)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("BSb"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("has space"))
}

func TestEncodeDecodeFileID(t *testing.T) {
	id, err := DecodeFileID(EncodeFileID(42))
	assert.NoError(t, err)
	assert.EqualValues(t, 42, id)
}
