package dshot

/*------------------------------------------------------------------
 *
 * Purpose:	Accumulate the 16 bits of a DShot command frame.
 *
 * Description:	Sent most significant bit first:
 *
 *		  v v v v v v v v v v v t c c c c
 *
 *		v = 11 bit throttle or command value
 *		t = telemetry request
 *		c = checksum of the preceding 12 bits
 *
 *		Values 0 - 47 are special commands, 48 - 2047 throttle.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
)

const COMMAND_FRAME_BITS = 16

// Values below this are special commands rather than throttle.
const DSHOT_MIN_THROTTLE = 48

type CommandFrame struct {
	bits          []BitSample
	bidirectional bool

	result *CommandResult
}

// CommandResult is a complete command frame.  A bad checksum still
// produces a result, with ChecksumValid false.
type CommandResult struct {
	Start uint64
	End   uint64

	Bits []BitSample

	Raw              uint16
	Value            uint16 // 11 bits.
	TelemetryRequest bool

	ReceivedChecksum   uint8
	CalculatedChecksum uint8
	ChecksumValid      bool

	Bidirectional bool
}

func NewCommandFrame(bidirectional bool) *CommandFrame {
	return &CommandFrame{
		bits:          make([]BitSample, 0, COMMAND_FRAME_BITS),
		bidirectional: bidirectional,
	}
}

func (f *CommandFrame) AddBit(b BitSample) {
	f.bits = append(f.bits, b)
}

func (f *CommandFrame) Len() int {
	return len(f.bits)
}

/*------------------------------------------------------------------
 *
 * Name:	Finalize
 *
 * Purpose:	Split a complete frame into its fields and check it.
 *
 * Returns:	The result, computed only once per frame.
 *		ErrIncompleteFrame if fewer than 16 bits.
 *		ErrFrameOverrun if more.
 *
 *---------------------------------------------------------------*/

func (f *CommandFrame) Finalize() (*CommandResult, error) {
	if f.result != nil {
		return f.result, nil
	}

	if len(f.bits) < COMMAND_FRAME_BITS {
		return nil, fmt.Errorf("%w: %d of %d command bits", ErrIncompleteFrame, len(f.bits), COMMAND_FRAME_BITS)
	}
	if len(f.bits) > COMMAND_FRAME_BITS {
		return nil, fmt.Errorf("%w: %d command bits", ErrFrameOverrun, len(f.bits))
	}

	var raw = uint16(bitsToUint(f.bits))
	var data = raw >> 4

	var r = &CommandResult{
		Start:              f.bits[0].Start,
		End:                f.bits[COMMAND_FRAME_BITS-1].End,
		Bits:               f.bits,
		Raw:                raw,
		Value:              data >> 1,
		TelemetryRequest:   data&1 != 0,
		ReceivedChecksum:   uint8(raw & 0x0f),
		CalculatedChecksum: ComputeChecksum(data, f.bidirectional),
		Bidirectional:      f.bidirectional,
	}
	r.ChecksumValid = r.ReceivedChecksum == r.CalculatedChecksum

	f.result = r
	return r, nil
}

func (r *CommandResult) IsCommand() bool {
	return r.Value < DSHOT_MIN_THROTTLE
}

// ChecksumStart is where the checksum bits begin, for display.
func (r *CommandResult) ChecksumStart() uint64 {
	return r.Bits[COMMAND_FRAME_BITS-4].Start
}

// Malformed reports whether any bit had impossible timing.
func (r *CommandResult) Malformed() bool {
	for _, b := range r.Bits {
		if b.Malformed {
			return true
		}
	}
	return false
}
