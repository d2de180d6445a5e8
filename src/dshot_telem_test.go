package dshot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Telemetry frame from the GCR value, with a low start bit in front.
func telemetryFrameFromGCR(gcr uint32, bidirectional bool, edtForce bool) *TelemetryFrame {
	var f = NewTelemetryFrame(bidirectional, edtForce)
	var line = GCRToLine(gcr)
	var start uint64 = 500

	f.AddBit(BitSample{Start: start, End: start + 64})
	for i := range GCR_DATA_BITS {
		start += 64
		f.AddBit(BitSample{Start: start, End: start + 64, Value: line&(1<<(GCR_DATA_BITS-1-i)) != 0})
	}
	return f
}

func Test_TelemetryAllZeroGroups(t *testing.T) {
	for _, bidirectional := range []bool{false, true} {
		var f = telemetryFrameFromGCR(0b11001_11001_11001_11001, bidirectional, false)
		assert.True(t, f.Complete())

		var r, err = f.Finalize()
		require.NoError(t, err)

		assert.Equal(t, uint32(0b11001_11001_11001_11001), r.GCR)
		assert.Equal(t, uint16(0), r.Payload)
		assert.Equal(t, uint8(0), r.ReceivedChecksum)
		assert.Equal(t, ComputeChecksum(0, bidirectional) == 0, r.ChecksumValid)
	}
}

func Test_TelemetryERPM(t *testing.T) {
	var payload = EncodeERPMPeriod(2000)
	var f = telemetryFrameFromGCR(GCREncode(EncodeTelemetryWord(payload)), true, false)

	var r, err = f.Finalize()
	require.NoError(t, err)

	assert.True(t, r.ChecksumValid)
	assert.True(t, r.Decoded())
	assert.False(t, r.NotImplemented())
	assert.Equal(t, TELEM_ERPM, r.Kind)
	assert.Equal(t, uint8(2), r.Exponent)
	assert.Equal(t, uint16(500), r.Mantissa)
	assert.Equal(t, uint32(2000), r.PeriodUs)
	assert.Equal(t, uint32(30000), r.ERPM())

	assert.Equal(t, uint64(500), r.Start)
	assert.Equal(t, uint64(500+21*64), r.End)
}

func Test_TelemetryEDTNotImplemented(t *testing.T) {
	var f = telemetryFrameFromGCR(GCREncode(EncodeTelemetryWord(0x123)), true, true)

	var r, err = f.Finalize()
	require.NoError(t, err)

	assert.True(t, r.ChecksumValid)
	assert.Equal(t, TELEM_EDT, r.Kind)
	assert.True(t, r.NotImplemented())
	assert.ErrorIs(t, r.PayloadErr, ErrExtendedTelemetryNotImplemented)
	assert.Equal(t, uint16(0x123), r.Payload)
	assert.Equal(t, uint32(0), r.ERPM())
}

func Test_TelemetryGCRError(t *testing.T) {
	var gcr = GCREncode(EncodeTelemetryWord(0x456)) &^ (0x1f << 15)
	var f = telemetryFrameFromGCR(gcr, true, false)

	var r, err = f.Finalize()
	require.Error(t, err)
	require.NotNil(t, r)
	assert.False(t, r.Decoded())
	assert.Equal(t, uint32(0), r.ERPM())

	var gcrErr *GCRDecodeError
	require.True(t, errors.As(err, &gcrErr))
	assert.Equal(t, uint8(0), gcrErr.Pattern)
	assert.Equal(t, 0, gcrErr.Group)
}

func Test_TelemetryIncomplete(t *testing.T) {
	var f = NewTelemetryFrame(true, false)
	f.AddBit(BitSample{})
	assert.False(t, f.Complete())

	var r, err = f.Finalize()
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrIncompleteFrame)
}

func Test_ERPMPeriodEncoding(t *testing.T) {
	var e, m, p = DecodeERPMPeriod(0b011_000000101)
	assert.Equal(t, uint8(3), e)
	assert.Equal(t, uint16(5), m)
	assert.Equal(t, uint32(40), p)

	assert.Equal(t, uint16(300), EncodeERPMPeriod(300))
	assert.Equal(t, uint16(1<<9|300), EncodeERPMPeriod(600))

	// Saturates.
	assert.Equal(t, uint16(0xfff), EncodeERPMPeriod(1<<30))
}
