package dshot

/*------------------------------------------------------------------
 *
 * Purpose:	Generate DShot captures for testing the decoder.
 *
 * Description:	Frames are laid out on an absolute time line so
 *		rounding to whole samples never accumulates.
 *
 *		Command bit, normal polarity (bidirectional inverts it):
 *
 *		     ___________
 *		  __|           |_______	  1: active 75% of the period
 *		     _____
 *		  __|     |_____________	  0: active 37.5% of the period
 *
 *		Telemetry reply, bidirectional only, starts after the
 *		turnaround delay: a low start bit, then the 20 GCR
 *		bits as line levels, then back to idle high.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math"
)

const DUTY_ZERO = 0.375
const DUTY_ONE = 0.75

// Typical delay between the end of a command frame and the reply.
const DEFAULT_TURNAROUND_US = 30

// Idle time after each frame, in command bit periods.
const DEFAULT_IDLE_BITS = 20

type GenReply struct {
	PeriodUs uint32 // eRPM period.

	// Send this 12 bit payload instead of an eRPM period.
	Payload    uint16
	UsePayload bool

	BadChecksum bool

	// Replace this GCR group (0 - 3) with a pattern that is not in the table.
	CorruptGroup int
	Corrupt      bool
}

type GenFrame struct {
	Value            uint16 // 0 - 2047
	TelemetryRequest bool
	BadChecksum      bool

	Reply *GenReply
}

type Generator struct {
	SampleRate    uint64
	BaudRate      uint64
	Bidirectional bool

	TurnaroundUs float64
	IdleBits     float64

	rec *LevelRecorder
	t   float64 // Absolute position in samples.
}

func NewGenerator(sampleRate uint64, baudRate uint64, bidirectional bool) (*Generator, error) {
	if sampleRate == 0 || baudRate == 0 {
		return nil, fmt.Errorf("%w: generator needs sample rate and DShot rate", ErrConfiguration)
	}
	if sampleRate/baudRate < 4 {
		return nil, fmt.Errorf("%w: %d samples/s is too slow to generate %d bit/s", ErrConfiguration, sampleRate, baudRate)
	}

	var g = &Generator{
		SampleRate:    sampleRate,
		BaudRate:      baudRate,
		Bidirectional: bidirectional,
		TurnaroundUs:  DEFAULT_TURNAROUND_US,
		IdleBits:      DEFAULT_IDLE_BITS,
		rec:           NewLevelRecorder(bidirectional),
	}

	// Some idle line before the first frame.
	g.Idle(g.IdleBits)

	return g, nil
}

func (g *Generator) bitSamples() float64 {
	return float64(g.SampleRate) / float64(g.BaudRate)
}

func (g *Generator) telemetryBitSamples() float64 {
	return float64(g.SampleRate) * TELEM_BAUD_DEN / (float64(g.BaudRate) * TELEM_BAUD_NUM)
}

func (g *Generator) idleLevel() bool {
	return g.Bidirectional
}

func (g *Generator) holdUntil(level bool, abs float64) {
	var end = uint64(math.Round(abs))
	if end > g.rec.Pos() {
		g.rec.Hold(level, end-g.rec.Pos())
	}
}

// Idle holds the line idle for n command bit periods.
func (g *Generator) Idle(n float64) {
	g.t += n * g.bitSamples()
	g.holdUntil(g.idleLevel(), g.t)
}

// EncodeCommand packs value, telemetry request and checksum into a frame.
func EncodeCommand(value uint16, telemetryRequest bool, bidirectional bool) uint16 {
	var data = (value & 0x7ff) << 1
	if telemetryRequest {
		data |= 1
	}
	return (data << 4) | uint16(ComputeChecksum(data, bidirectional))
}

// EncodeTelemetryWord appends the inverted checksum to a 12 bit payload.
func EncodeTelemetryWord(payload uint16) uint16 {
	payload &= 0xfff
	return (payload << 4) | uint16(ComputeChecksum(payload, true))
}

/*------------------------------------------------------------------
 *
 * Name:	Frame
 *
 * Purpose:	Add one command frame, its telemetry reply if any,
 *		and the idle time after.
 *
 * Returns:	Sample where the frame starts.
 *
 *---------------------------------------------------------------*/

func (g *Generator) Frame(f GenFrame) uint64 {
	Assert(f.Value <= 0x7ff)

	var word = EncodeCommand(f.Value, f.TelemetryRequest, g.Bidirectional)
	if f.BadChecksum {
		word ^= 0x1
	}

	var active = !g.idleLevel()
	var p = g.bitSamples()
	var start = uint64(math.Round(g.t))

	for i := range COMMAND_FRAME_BITS {
		var bit = word&(0x8000>>i) != 0
		var duty = IfThenElse(bit, DUTY_ONE, DUTY_ZERO)

		var bitStart = g.t + float64(i)*p
		g.holdUntil(active, bitStart+duty*p)
		g.holdUntil(!active, bitStart+p)
	}
	g.t += COMMAND_FRAME_BITS * p

	if f.Reply != nil && g.Bidirectional {
		g.t += g.TurnaroundUs * float64(g.SampleRate) / 1e6
		g.holdUntil(true, g.t)
		g.reply(*f.Reply)
	}

	g.Idle(g.IdleBits)

	return start
}

func (g *Generator) reply(r GenReply) {
	var payload = r.Payload
	if !r.UsePayload {
		payload = EncodeERPMPeriod(r.PeriodUs)
	}

	var word = EncodeTelemetryWord(payload)
	if r.BadChecksum {
		word ^= 0x1
	}

	var gcr = GCREncode(word)
	if r.Corrupt {
		var shift = uint((GCR_GROUPS - 1 - r.CorruptGroup) * GCR_GROUP_BITS)
		gcr &^= 0x1f << shift
	}

	// Start bit then the data bits, most significant first.
	var line = GCRToLine(gcr)
	var tb = g.telemetryBitSamples()

	g.holdUntil(false, g.t+tb)
	for i := range GCR_DATA_BITS {
		var level = line&(1<<(GCR_DATA_BITS-1-i)) != 0
		g.holdUntil(level, g.t+float64(i+2)*tb)
	}
	g.t += TELEMETRY_FRAME_BITS * tb
	g.holdUntil(true, g.t)
}

func (g *Generator) Source() *MemorySource {
	return g.rec.Source()
}
