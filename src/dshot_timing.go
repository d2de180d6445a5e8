package dshot

/*------------------------------------------------------------------
 *
 * Purpose:	Derive sample count thresholds from the sample rate
 *		and the DShot bit rate.
 *
 * Description:	Everything is integer truncation of the real ratio so
 *		the same inputs always produce the same thresholds.
 *
 *		DShot150	6.67 us per bit
 *		DShot300	3.33 us per bit
 *		DShot600	1.67 us per bit
 *		DShot1200	0.83 us per bit
 *
 *		Bidirectional telemetry comes back at 5/4 of the
 *		command bit rate.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"slices"
)

// Allowed DShot rates, in kbaud.
var DSHOT_RATES = []int{150, 300, 600, 1200}

const DEFAULT_DSHOT_RATE = 150

// Inactivity, in bit periods, that marks the end of a command frame.
const INTER_FRAME_TIMEOUT_BITS = 3

// Telemetry bit rate is TELEM_BAUD_NUM/TELEM_BAUD_DEN times the command bit rate.
const TELEM_BAUD_NUM = 5
const TELEM_BAUD_DEN = 4

// How long to wait for a telemetry reply after a good command frame.
// ESCs normally answer about 30 us after the frame.
const DEFAULT_TELEMETRY_WAIT_US = 100

// Timing holds the derived thresholds for one decode session.
// Never modify one in place, build a new one with NewTiming.
type Timing struct {
	SampleRate uint64 // Hz
	BaudRate   uint64 // Hz, e.g. 300000 for DShot300.

	BitPeriodSamples         uint64
	InterFrameTimeoutSamples uint64
	TelemetryHalfBitSamples  uint64

	// Ceiling, counted from the end of the last good command frame,
	// for the start of a telemetry reply.
	TelemetryWaitSamples uint64

	Bidirectional           bool
	ExtendedTelemetryForced bool
}

/*------------------------------------------------------------------
 *
 * Name:	NewTiming
 *
 * Purpose:	Compute all thresholds.
 *
 * Inputs:	sampleRate	- Samples per second.  Must be known
 *				  before decoding can start.
 *
 *		baudRate	- DShot bit rate in bits per second.
 *
 *		telemetryWaitUs	- Telemetry reply window in microseconds.
 *				  0 selects DEFAULT_TELEMETRY_WAIT_US.
 *
 * Returns:	Timing, or an error wrapping ErrConfiguration.
 *
 *---------------------------------------------------------------*/

func NewTiming(sampleRate uint64, baudRate uint64, bidirectional bool, edtForce bool, telemetryWaitUs uint64) (*Timing, error) {
	if sampleRate == 0 {
		return nil, fmt.Errorf("%w: cannot decode without sample rate", ErrConfiguration)
	}
	if baudRate == 0 {
		return nil, fmt.Errorf("%w: cannot decode without DShot rate", ErrConfiguration)
	}
	if telemetryWaitUs == 0 {
		telemetryWaitUs = DEFAULT_TELEMETRY_WAIT_US
	}

	var t = &Timing{
		SampleRate:              sampleRate,
		BaudRate:                baudRate,
		Bidirectional:           bidirectional,
		ExtendedTelemetryForced: edtForce,
	}

	t.BitPeriodSamples = sampleRate / baudRate
	if t.BitPeriodSamples < 2 {
		return nil, fmt.Errorf("%w: sample rate %d Hz is too low for %d bit/s", ErrConfiguration, sampleRate, baudRate)
	}
	t.InterFrameTimeoutSamples = t.BitPeriodSamples * INTER_FRAME_TIMEOUT_BITS

	// (sampleRate / (baudRate * 5/4)) / 2
	t.TelemetryHalfBitSamples = (sampleRate * TELEM_BAUD_DEN) / (baudRate * TELEM_BAUD_NUM * 2)
	if bidirectional && t.TelemetryHalfBitSamples == 0 {
		return nil, fmt.Errorf("%w: sample rate %d Hz is too low for telemetry at %d bit/s", ErrConfiguration, sampleRate, baudRate)
	}

	t.TelemetryWaitSamples = sampleRate * telemetryWaitUs / 1000000

	return t, nil
}

// NewTimingForRate takes the DShot rate in kbaud, one of DSHOT_RATES.
func NewTimingForRate(sampleRate uint64, dshotRate int, bidirectional bool, edtForce bool) (*Timing, error) {
	if !slices.Contains(DSHOT_RATES, dshotRate) {
		return nil, fmt.Errorf("%w: DShot rate %d is not one of %v", ErrConfiguration, dshotRate, DSHOT_RATES)
	}

	return NewTiming(sampleRate, uint64(dshotRate)*1000, bidirectional, edtForce, 0)
}

// TelemetryOffset is the distance from the start of a telemetry reply to
// the given number of half bits.  Computed from the exact ratio each time
// so truncation does not add up over the frame.
func (t *Timing) TelemetryOffset(halfBits uint64) uint64 {
	return halfBits * t.SampleRate * TELEM_BAUD_DEN / (t.BaudRate * TELEM_BAUD_NUM * 2)
}

// TelemetryBitSamples is the width of one telemetry bit, truncated.
func (t *Timing) TelemetryBitSamples() uint64 {
	return t.TelemetryHalfBitSamples * 2
}
