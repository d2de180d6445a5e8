package dshot

/*------------------------------------------------------------------
 *
 * Purpose:	Error taxonomy for the DShot decoder.
 *
 * Description:	Only a configuration error stops a session.
 *		Everything else is per bit or per frame and ends up
 *		as a field of a result, or a discarded frame.
 *
 *		A bad checksum is not an error at all, it is
 *		ChecksumValid == false on an otherwise usable result.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrBitTiming     = errors.New("bit timing error")

	// Not enough bits yet.  Never reported, just means "keep going".
	ErrIncompleteFrame = errors.New("incomplete frame")

	// More bits than a frame can hold, e.g. two frames with no gap between them.
	ErrFrameOverrun = errors.New("frame overrun")

	ErrGCRDecode = errors.New("GCR decode error")

	ErrExtendedTelemetryNotImplemented = errors.New("extended telemetry decoding not implemented")
)

// GCRDecodeError names the 5 bit group that is not in the GCR table.
type GCRDecodeError struct {
	Pattern uint8 // Offending 5 bit group.
	Group   int   // 0 for the most significant group, 3 for the least.
}

func (e *GCRDecodeError) Error() string {
	return fmt.Sprintf("%s: invalid pattern 0b%05b in group %d", ErrGCRDecode, e.Pattern, e.Group)
}

func (e *GCRDecodeError) Unwrap() error {
	return ErrGCRDecode
}
