package dshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_EncodeCommand(t *testing.T) {
	assert.Equal(t, uint16(0x0066), EncodeCommand(3, false, false))
	assert.Equal(t, uint16(0x0069), EncodeCommand(3, false, true))
	assert.Equal(t, uint16(0x82e4), EncodeCommand(0x417, false, false))

	// Telemetry request bit sits just above the checksum.
	assert.Equal(t, uint16(0x10), EncodeCommand(0, true, false)&0x10)
}

func Test_EncodeTelemetryWord(t *testing.T) {
	assert.Equal(t, uint16(0x000f), EncodeTelemetryWord(0))
	assert.Equal(t, uint32(0xce739), GCREncode(0))

	var word = EncodeTelemetryWord(0x2ee)
	assert.True(t, ValidateChecksum(word>>4, uint8(word&0xf), true))
}

func Test_GeneratorErrors(t *testing.T) {
	var _, err = NewGenerator(0, 300000, true)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewGenerator(1000000, 300000, true)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func Test_GeneratorLayout(t *testing.T) {
	var g, err = NewGenerator(testSampleRate, 300000, false)
	require.NoError(t, err)

	// Normal DShot ignores replies.
	var start = g.Frame(GenFrame{Value: 3, Reply: &GenReply{PeriodUs: 1000}})
	assert.Equal(t, uint64(DEFAULT_IDLE_BITS*80), start)

	var src = g.Source()
	assert.False(t, src.InitialLevel())
	require.Len(t, src.Transitions(), 2*COMMAND_FRAME_BITS)
	assert.Equal(t, Transition{Sample: start, Level: true}, src.Transitions()[0])

	// First bit is 0, active for 37.5% of 80 samples.
	assert.Equal(t, Transition{Sample: start + 30, Level: false}, src.Transitions()[1])

	var n, _ = src.Samples()
	assert.Equal(t, start+(COMMAND_FRAME_BITS+DEFAULT_IDLE_BITS)*80, n)
}

func Test_GeneratorBidirectional(t *testing.T) {
	var g, err = NewGenerator(testSampleRate, 300000, true)
	require.NoError(t, err)

	var start = g.Frame(GenFrame{Value: 3})
	var withoutReply = len(g.Source().Transitions())

	var src = g.Source()
	assert.True(t, src.InitialLevel())
	assert.Equal(t, Transition{Sample: start, Level: false}, src.Transitions()[0])
	assert.Equal(t, 2*COMMAND_FRAME_BITS, withoutReply)

	g.Frame(GenFrame{Value: 3, Reply: &GenReply{PeriodUs: 1000}})
	assert.Greater(t, len(g.Source().Transitions()), 2*withoutReply)
}
