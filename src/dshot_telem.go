package dshot

/*------------------------------------------------------------------
 *
 * Purpose:	Accumulate and decode a bidirectional DShot
 *		telemetry reply.
 *
 * Description:	The reply is a start bit followed by 20 GCR bits.
 *		After GCR decoding we have 16 bits:
 *
 *		  p p p p p p p p p p p p c c c c
 *
 *		p = 12 bit payload, c = inverted checksum of the payload.
 *
 *		Normal (eRPM) payload:
 *
 *		  e e e m m m m m m m m m
 *
 *		The 9 bit mantissa shifted left by the 3 bit exponent
 *		is the electrical period in microseconds.  This gives
 *		a range of 1 us to 65408 us.
 *
 *		Extended DShot Telemetry (EDT) uses the same 12 bits
 *		for typed values.  Decoding of those is not done yet.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
)

// One start bit plus the GCR data.
//
// Earlier versions triggered on 20 bits, or on the value reaching 19
// significant bits.  21 line bits is what the sampling below produces
// for a whole reply.
const TELEMETRY_FRAME_BITS = 1 + GCR_DATA_BITS

type TelemetryKind int

const (
	TELEM_ERPM TelemetryKind = iota
	TELEM_EDT
)

func (k TelemetryKind) String() string {
	switch k {
	case TELEM_ERPM:
		return "eRPM"
	case TELEM_EDT:
		return "EDT"
	default:
		return fmt.Sprintf("TelemetryKind(%d)", int(k))
	}
}

type TelemetryFrame struct {
	bits          []BitSample
	value         uint32 // Bits so far, most significant first.
	bidirectional bool
	edtForce      bool

	result *TelemetryResult
	err    error
}

type TelemetryResult struct {
	Start uint64
	End   uint64

	Bits []BitSample

	Line uint32 // All line bits including the start bit.
	GCR  uint32 // Low 20 line bits after undoing the change-of-level coding.

	// Only meaningful when Err is nil.
	Word               uint16
	Payload            uint16
	ReceivedChecksum   uint8
	CalculatedChecksum uint8
	ChecksumValid      bool

	Kind     TelemetryKind
	Exponent uint8
	Mantissa uint16
	PeriodUs uint32

	// Undecodable GCR group.  The rest of the frame is not usable.
	Err error

	// ErrExtendedTelemetryNotImplemented for EDT payloads.
	PayloadErr error
}

func NewTelemetryFrame(bidirectional bool, edtForce bool) *TelemetryFrame {
	return &TelemetryFrame{
		bits:          make([]BitSample, 0, TELEMETRY_FRAME_BITS),
		bidirectional: bidirectional,
		edtForce:      edtForce,
	}
}

func (f *TelemetryFrame) AddBit(b BitSample) {
	f.bits = append(f.bits, b)
	f.value <<= 1
	if b.Value {
		f.value |= 1
	}
}

func (f *TelemetryFrame) Len() int {
	return len(f.bits)
}

func (f *TelemetryFrame) Complete() bool {
	return len(f.bits) >= TELEMETRY_FRAME_BITS
}

/*------------------------------------------------------------------
 *
 * Name:	Finalize
 *
 * Purpose:	Decode a complete telemetry reply.
 *
 * Returns:	ErrIncompleteFrame / ErrFrameOverrun with no result
 *		when the bit count is wrong.
 *
 *		A *GCRDecodeError together with a partial result
 *		(spans and raw bits only) when a group is invalid.
 *
 *		Otherwise the decoded result.  A bad checksum is
 *		ChecksumValid false, not an error.
 *
 *---------------------------------------------------------------*/

func (f *TelemetryFrame) Finalize() (*TelemetryResult, error) {
	if f.result != nil {
		return f.result, f.err
	}

	if len(f.bits) < TELEMETRY_FRAME_BITS {
		return nil, fmt.Errorf("%w: %d of %d telemetry bits", ErrIncompleteFrame, len(f.bits), TELEMETRY_FRAME_BITS)
	}
	if len(f.bits) > TELEMETRY_FRAME_BITS {
		return nil, fmt.Errorf("%w: %d telemetry bits", ErrFrameOverrun, len(f.bits))
	}

	var r = &TelemetryResult{
		Start: f.bits[0].Start,
		End:   f.bits[len(f.bits)-1].End,
		Bits:  f.bits,
		Line:  f.value,
		GCR:   LineToGCR(f.value),
	}
	f.result = r

	var word, err = GCRDecode(r.GCR)
	if err != nil {
		r.Err = err
		f.err = err
		return r, err
	}

	r.Word = word
	r.ReceivedChecksum = uint8(word & 0x0f)
	r.Payload = (word >> 4) & 0xfff
	r.CalculatedChecksum = ComputeChecksum(r.Payload, f.bidirectional)
	r.ChecksumValid = r.ReceivedChecksum == r.CalculatedChecksum

	r.decodePayload(f.edtForce)

	return r, nil
}

func (r *TelemetryResult) decodePayload(edtForce bool) {
	if edtForce {
		r.Kind = TELEM_EDT
		r.PayloadErr = ErrExtendedTelemetryNotImplemented
		return
	}

	r.Kind = TELEM_ERPM
	r.Exponent, r.Mantissa, r.PeriodUs = DecodeERPMPeriod(r.Payload)
}

// DecodeERPMPeriod splits a 12 bit payload into exponent and mantissa
// and returns the period in microseconds as well.
func DecodeERPMPeriod(payload uint16) (uint8, uint16, uint32) {
	var e = uint8((payload >> 9) & 0x7)
	var m = payload & 0x1ff
	return e, m, uint32(m) << e
}

// EncodeERPMPeriod is the inverse of DecodeERPMPeriod, using the smallest
// exponent that fits.  Precision is lost for large periods.
func EncodeERPMPeriod(periodUs uint32) uint16 {
	var e uint16
	for periodUs > 0x1ff && e < 7 {
		periodUs >>= 1
		e++
	}
	if periodUs > 0x1ff {
		periodUs = 0x1ff
	}
	return (e << 9) | uint16(periodUs)
}

// ERPM is electrical revolutions per minute, 0 if there is no period.
func (r *TelemetryResult) ERPM() uint32 {
	if r.Err != nil || r.Kind != TELEM_ERPM || r.PeriodUs == 0 {
		return 0
	}
	return 60000000 / r.PeriodUs
}

// Decoded reports whether the GCR groups were all valid.
func (r *TelemetryResult) Decoded() bool {
	return r.Err == nil
}

func (r *TelemetryResult) NotImplemented() bool {
	return errors.Is(r.PayloadErr, ErrExtendedTelemetryNotImplemented)
}
