package dshot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_GCRTableIsBijection(t *testing.T) {
	var seen = map[uint8]bool{}
	var valid = 0

	for group := range uint8(32) {
		var nibble, ok = GCRDecodeGroup(group)
		if !ok {
			continue
		}
		valid++
		assert.False(t, seen[nibble], "nibble %x decoded from more than one group", nibble)
		seen[nibble] = true
		assert.Equal(t, group, GCREncodeNibble(nibble))
	}

	assert.Equal(t, 16, valid)
	assert.Len(t, seen, 16)
}

func Test_GCRKnownGroups(t *testing.T) {
	var cases = map[uint8]uint8{
		0b11001: 0x0, 0b11011: 0x1, 0b10010: 0x2, 0b10011: 0x3,
		0b11101: 0x4, 0b10101: 0x5, 0b10110: 0x6, 0b10111: 0x7,
		0b11010: 0x8, 0b01001: 0x9, 0b01010: 0xa, 0b01011: 0xb,
		0b11110: 0xc, 0b01101: 0xd, 0b01110: 0xe, 0b01111: 0xf,
	}
	for group, expected := range cases {
		var nibble, ok = GCRDecodeGroup(group)
		assert.True(t, ok, "group %05b", group)
		assert.Equal(t, expected, nibble, "group %05b", group)
	}
}

func Test_GCRDecodeInvalidGroups(t *testing.T) {
	var valid = GCREncode(0x1234)

	for group := range uint8(32) {
		if _, ok := GCRDecodeGroup(group); ok {
			continue
		}

		// Put the bad group third.
		var gcr = (valid &^ (0x1f << 5)) | uint32(group)<<5

		var _, err = GCRDecode(gcr)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGCRDecode)

		var gcrErr *GCRDecodeError
		require.True(t, errors.As(err, &gcrErr))
		assert.Equal(t, group, gcrErr.Pattern)
		assert.Equal(t, 2, gcrErr.Group)
	}
}

func Test_GCRDecodeAllZeroNibbles(t *testing.T) {
	var gcr uint32 = 0b11001_11001_11001_11001

	var word, err = GCRDecode(gcr)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), word)
	assert.Equal(t, uint32(0xce739), GCREncode(0))
}

func Test_GCRRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var value = rapid.Uint16().Draw(t, "value")

		var decoded, err = GCRDecode(GCREncode(value))
		require.NoError(t, err)
		assert.Equal(t, value, decoded)
	})
}

func Test_LineCodingRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var gcr = rapid.Uint32Range(0, gcrDataMask).Draw(t, "gcr")

		assert.Equal(t, gcr, LineToGCR(GCRToLine(gcr)))

		// A start bit above the data makes no difference.
		assert.Equal(t, gcr, LineToGCR(GCRToLine(gcr)|1<<GCR_DATA_BITS))
	})
}
