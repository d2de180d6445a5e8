package dshot

/*------------------------------------------------------------------
 *
 * Purpose:   	Read a live capture from a serial sniffer.
 *
 * Description:	A small microcontroller samples the motor line and
 *		streams the samples, 8 per byte, least significant bit
 *		first, over a USB serial port.  The sample rate is fixed
 *		by the sniffer firmware and must be given separately.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"

	"github.com/pkg/term"
)

type SerialSource struct {
	*PackedSource

	fd *term.Term
}

/*-------------------------------------------------------------------
 *
 * Name:	OpenSerialSource
 *
 * Purpose:	Open serial port.
 *
 * Inputs:	devicename	- Usually like /dev/ttyACM0.
 *
 *		baud		- Speed.  If 0, leave it alone.  USB CDC
 *				  devices ignore it anyhow.
 *
 *---------------------------------------------------------------*/

func OpenSerialSource(devicename string, baud int) (*SerialSource, error) {
	var fd, err = term.Open(devicename, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("could not open serial port %s: %w", devicename, err)
	}

	if baud != 0 {
		if err := fd.SetSpeed(baud); err != nil {
			fd.Close()
			return nil, fmt.Errorf("serial port %s: unsupported speed %d: %w", devicename, baud, err)
		}
	}

	// Blocks until the first byte arrives.
	var packed, packedErr = NewPackedSource(fd)
	if packedErr != nil {
		fd.Close()
		return nil, packedErr
	}

	return &SerialSource{PackedSource: packed, fd: fd}, nil
}

func (s *SerialSource) Close() error {
	if s.fd == nil {
		return nil
	}
	var err = s.fd.Close()
	s.fd = nil
	return err
}
