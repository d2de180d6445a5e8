package dshot

/*------------------------------------------------------------------
 *
 * Purpose:	Turn pulse timing into bit values.
 *
 * Description:	Command bits are pulse width modulated.  The active
 *		part is about 37% of the bit period for a 0 and 75%
 *		for a 1, so anything over half the period is a 1.
 *
 *		There is no tolerance band.  Pulses very close to 50%
 *		can go either way on a noisy line.
 *
 *		Telemetry bits are plain levels sampled in the middle
 *		of each bit.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
)

// BitSample is one classified bit.  Not modified after creation.
type BitSample struct {
	Start uint64
	Mid   uint64 // End of the active part of a command bit.
	End   uint64

	// Telemetry bits are sampled at fixed offsets and have no Mid.
	HasMid bool

	Value bool

	// Timing did not match any expected pattern.  Value is a guess.
	Malformed bool
}

/*------------------------------------------------------------------
 *
 * Name:	ClassifyCommandBit
 *
 * Purpose:	Decide a command bit from its duty cycle.
 *
 * Inputs:	start	- Sample where the active part begins.
 *		mid	- Sample where the active part ends.
 *		end	- Sample where the next bit begins.
 *
 * Returns:	true when (mid - start) / (end - start) > 0.5.
 *
 *---------------------------------------------------------------*/

func ClassifyCommandBit(start uint64, mid uint64, end uint64) bool {
	if end <= start || mid < start {
		return false
	}

	var duty = mid - start
	var period = end - start

	// Same as duty/period > 0.5 without floating point.
	return 2*duty > period
}

func newCommandBit(start uint64, mid uint64, end uint64) BitSample {
	return BitSample{
		Start:     start,
		Mid:       mid,
		End:       end,
		HasMid:    true,
		Value:     ClassifyCommandBit(start, mid, end),
		Malformed: !(start <= mid && mid <= end) || end == start,
	}
}

/*------------------------------------------------------------------
 *
 * Name:	ClassifyTelemetryBit
 *
 * Purpose:	Decide a telemetry bit from the level match results.
 *
 * Inputs:	lowMatched	- Line was low at the sample point.
 *		highMatched	- Line was high at the sample point.
 *
 * Returns:	false for low, true for high.
 *		ErrBitTiming if not exactly one of them matched.
 *
 *---------------------------------------------------------------*/

func ClassifyTelemetryBit(lowMatched bool, highMatched bool) (bool, error) {
	switch {
	case lowMatched && !highMatched:
		return false, nil
	case !lowMatched && highMatched:
		return true, nil
	default:
		return false, fmt.Errorf("%w: telemetry sample matched low=%t high=%t", ErrBitTiming, lowMatched, highMatched)
	}
}

func bitsToUint(bits []BitSample) uint32 {
	var v uint32
	for _, b := range bits {
		v <<= 1
		if b.Value {
			v |= 1
		}
	}
	return v
}
