package dshot

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAllTransitions(t *testing.T, r TransitionReader) []Transition {
	t.Helper()

	var out []Transition
	for {
		var tr, err = r.ReadTransition()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, tr)
	}
}

func generatedCapture(t *testing.T, sampleRate uint64) *MemorySource {
	t.Helper()

	var g, err = NewGenerator(sampleRate, 300000, true)
	require.NoError(t, err)
	g.Frame(GenFrame{Value: 1046, Reply: &GenReply{PeriodUs: 1500}})
	g.Frame(GenFrame{Value: 3})
	return g.Source()
}

func Test_VCDRoundTrip(t *testing.T) {
	for _, sampleRate := range []uint64{24000000, 25000000, 8000000} {
		var src = generatedCapture(t, sampleRate)

		var buf bytes.Buffer
		require.NoError(t, WriteVCD(&buf, src, sampleRate))

		var v, err = NewVCDSource(&buf, sampleRate, "D0")
		require.NoError(t, err)
		assert.Equal(t, "D0", v.Name())
		assert.True(t, v.InitialLevel())

		assert.Equal(t, src.Transitions(), readAllTransitions(t, v), "%d Hz", sampleRate)

		var n, known = v.Samples()
		assert.True(t, known)
		var expected, _ = src.Samples()
		assert.Equal(t, expected, n)
	}
}

func Test_VCDTimescale(t *testing.T) {
	var cases = map[string]float64{
		"1 ns":  1e-9,
		"1ns":   1e-9,
		"10 us": 10e-6,
		"100ps": 100e-12,
		"1 s":   1,
	}
	for s, expected := range cases {
		var ts, err = parseTimescale(s)
		require.NoError(t, err, s)
		assert.InDelta(t, expected, ts, expected*1e-9, s)
	}

	var _, err = parseTimescale("1 parsec")
	assert.Error(t, err)
	_, err = parseTimescale("ns")
	assert.Error(t, err)
}

const twoWireVCD = `$date today $end
$timescale 1 us $end
$scope module top $end
$var wire 1 ! CLK $end
$var wire 1 " MOTOR $end
$var wire 8 # BUS $end
$upscope $end
$enddefinitions $end
#0
$dumpvars
0!
x"
b00000000 #
$end
#5
1!
1"
#7
0"
b00000001 #
#9
1"
1"
#12
z"
`

func Test_VCDChannelSelection(t *testing.T) {
	// By name, 1 MHz so microseconds are samples.
	var v, err = NewVCDSource(strings.NewReader(twoWireVCD), 1000000, "MOTOR")
	require.NoError(t, err)
	assert.False(t, v.InitialLevel())
	assert.Equal(t, []Transition{{5, true}, {7, false}, {9, true}, {12, false}}, readAllTransitions(t, v))

	var n, _ = v.Samples()
	assert.Equal(t, uint64(13), n)

	// By index.
	v, err = NewVCDSource(strings.NewReader(twoWireVCD), 2000000, "0")
	require.NoError(t, err)
	assert.Equal(t, "CLK", v.Name())
	assert.Equal(t, []Transition{{10, true}}, readAllTransitions(t, v))

	_, err = NewVCDSource(strings.NewReader(twoWireVCD), 1000000, "BUS")
	assert.Error(t, err)

	_, err = NewVCDSource(strings.NewReader(twoWireVCD), 1000000, "NOPE")
	assert.Error(t, err)

	_, err = NewVCDSource(strings.NewReader(twoWireVCD), 0, "MOTOR")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func Test_BinaryRoundTrip(t *testing.T) {
	var src = generatedCapture(t, 12000000)

	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, src))

	var n, _ = src.Samples()
	assert.Equal(t, int(n), buf.Len())

	var b, err = NewBinarySource(&buf, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, src.InitialLevel(), b.InitialLevel())
	assert.Equal(t, src.Transitions(), readAllTransitions(t, b))

	var samples, known = b.Samples()
	assert.True(t, known)
	assert.Equal(t, n, samples)
}

func Test_BinaryChannelAndUnitsize(t *testing.T) {
	// Channel 9 is bit 1 of the second byte.
	var data = []byte{0xff, 0x00, 0xff, 0x02, 0x00, 0x02, 0x00, 0x00, 0x55}

	var b, err = NewBinarySource(bytes.NewReader(data), 2, 9)
	require.NoError(t, err)
	assert.False(t, b.InitialLevel())
	assert.Equal(t, []Transition{{1, true}, {3, false}}, readAllTransitions(t, b))

	// Trailing half sample is dropped.
	var n, _ = b.Samples()
	assert.Equal(t, uint64(4), n)

	_, err = NewBinarySource(bytes.NewReader(data), 3, 0)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = NewBinarySource(bytes.NewReader(data), 1, 8)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func Test_PackedRoundTrip(t *testing.T) {
	var src = generatedCapture(t, 6000000)

	var buf bytes.Buffer
	require.NoError(t, WritePacked(&buf, src))

	var p, err = NewPackedSource(&buf)
	require.NoError(t, err)
	assert.Equal(t, src.InitialLevel(), p.InitialLevel())
	assert.Equal(t, src.Transitions(), readAllTransitions(t, p))
}

func Test_PackedBitOrder(t *testing.T) {
	var p, err = NewPackedSource(bytes.NewReader([]byte{0b11110000, 0b00000001}))
	require.NoError(t, err)
	assert.False(t, p.InitialLevel())
	assert.Equal(t, []Transition{{4, true}, {9, false}}, readAllTransitions(t, p))

	var n, _ = p.Samples()
	assert.Equal(t, uint64(16), n)
}

func Test_EmptyInputs(t *testing.T) {
	var b, err = NewBinarySource(bytes.NewReader(nil), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, readAllTransitions(t, b))

	var p, packedErr = NewPackedSource(bytes.NewReader(nil))
	require.NoError(t, packedErr)
	var n, known = p.Samples()
	assert.True(t, known)
	assert.Equal(t, uint64(0), n)
}

func Test_DecodeFromEachFormat(t *testing.T) {
	var src = generatedCapture(t, 24000000)
	var timing, err = NewTimingForRate(24000000, 300, true, false)
	require.NoError(t, err)

	var vcd, bin, packed bytes.Buffer
	require.NoError(t, WriteVCD(&vcd, src, 24000000))
	require.NoError(t, WriteBinary(&bin, src))
	require.NoError(t, WritePacked(&packed, src))

	var v, _ = NewVCDSource(&vcd, 24000000, "D0")
	var b, _ = NewBinarySource(&bin, 1, 0)
	var p, _ = NewPackedSource(&packed)

	for _, r := range []TransitionReader{src, v, b, p} {
		var c, _ = decodeAll(t, timing, r)
		require.Len(t, c.Commands(), 2)
		assert.Equal(t, uint16(1046), c.Commands()[0].Value)
		assert.Equal(t, uint16(3), c.Commands()[1].Value)
		require.Len(t, c.Telemetry(), 1)
		assert.Equal(t, uint32(1500), c.Telemetry()[0].PeriodUs)
	}
}
