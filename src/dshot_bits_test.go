package dshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ClassifyCommandBit(t *testing.T) {
	assert.False(t, ClassifyCommandBit(1000, 1330, 2000)) // 33%
	assert.True(t, ClassifyCommandBit(1000, 1660, 2000))  // 66%
	assert.False(t, ClassifyCommandBit(1000, 1500, 2000)) // Exactly half is a 0.
	assert.True(t, ClassifyCommandBit(1000, 1501, 2000))

	// Nonsense timing.
	assert.False(t, ClassifyCommandBit(1000, 1500, 1000))
	assert.False(t, ClassifyCommandBit(1000, 900, 2000))
}

func Test_NewCommandBitMalformed(t *testing.T) {
	assert.False(t, newCommandBit(0, 75, 100).Malformed)
	assert.True(t, newCommandBit(0, 75, 100).Value)
	assert.True(t, newCommandBit(0, 75, 100).HasMid)

	assert.True(t, newCommandBit(0, 150, 100).Malformed)
	assert.True(t, newCommandBit(100, 100, 100).Malformed)
}

func Test_ClassifyTelemetryBit(t *testing.T) {
	var v, err = ClassifyTelemetryBit(true, false)
	require.NoError(t, err)
	assert.False(t, v)

	v, err = ClassifyTelemetryBit(false, true)
	require.NoError(t, err)
	assert.True(t, v)

	_, err = ClassifyTelemetryBit(false, false)
	assert.ErrorIs(t, err, ErrBitTiming)

	_, err = ClassifyTelemetryBit(true, true)
	assert.ErrorIs(t, err, ErrBitTiming)
}
