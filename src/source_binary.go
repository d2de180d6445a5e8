package dshot

/*------------------------------------------------------------------
 *
 * Purpose:	Read raw logic samples.
 *
 * Description:	Two layouts are understood.
 *
 *		Binary		sigrok "binary" output.  unitsize bytes
 *				per sample, little endian, one bit per
 *				channel.  Channel 0 is bit 0 of the
 *				first byte.
 *
 *		Packed		One channel, 8 samples per byte, oldest
 *				sample in the least significant bit.
 *				This is what a UART or SPI based sniffer
 *				delivers, see serial_port.go.
 *
 *		Both report only the changes, so the decoder sees the
 *		same thing it would from a VCD file.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const MAX_CHANNELS = 8

// A source of one bit per sample, read a byte at a time.
type bitReader interface {
	next() (bool, error)
}

// levelStream turns a bitReader into transitions.
type levelStream struct {
	bits    bitReader
	initial bool
	level   bool
	n       uint64 // Samples consumed.
	started bool
	eof     bool
}

func (s *levelStream) start() error {
	var level, err = s.bits.next()
	if errors.Is(err, io.EOF) {
		s.eof = true
		s.started = true
		return nil
	}
	if err != nil {
		return err
	}
	s.initial = level
	s.level = level
	s.n = 1
	s.started = true
	return nil
}

func (s *levelStream) read() (Transition, error) {
	if s.eof {
		return Transition{}, io.EOF
	}
	for {
		var level, err = s.bits.next()
		if errors.Is(err, io.EOF) {
			s.eof = true
			return Transition{}, io.EOF
		}
		if err != nil {
			return Transition{}, err
		}
		var at = s.n
		s.n++
		if level != s.level {
			s.level = level
			return Transition{Sample: at, Level: level}, nil
		}
	}
}

/*------------------------------------------------------------------
 *
 * Name:	BinarySource
 *
 * Inputs:	r		- Raw samples.
 *		unitsize	- Bytes per sample, 1 or 2.
 *		channel		- Which bit.
 *
 *---------------------------------------------------------------*/

type BinarySource struct {
	levelStream
}

type unitReader struct {
	r        *bufio.Reader
	unitsize int
	channel  int
	buf      []byte
}

func (u *unitReader) next() (bool, error) {
	var _, err = io.ReadFull(u.r, u.buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		// A partial sample at the end is dropped.
		return false, io.EOF
	}
	if err != nil {
		return false, err
	}
	return u.buf[u.channel/8]&(1<<(u.channel%8)) != 0, nil
}

func NewBinarySource(r io.Reader, unitsize int, channel int) (*BinarySource, error) {
	if unitsize < 1 || unitsize > 2 {
		return nil, fmt.Errorf("%w: unitsize %d, must be 1 or 2", ErrConfiguration, unitsize)
	}
	if channel < 0 || channel >= unitsize*8 {
		return nil, fmt.Errorf("%w: channel %d does not fit in %d byte samples", ErrConfiguration, channel, unitsize)
	}

	var s = &BinarySource{levelStream{bits: &unitReader{
		r:        bufio.NewReader(r),
		unitsize: unitsize,
		channel:  channel,
		buf:      make([]byte, unitsize),
	}}}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BinarySource) InitialLevel() bool {
	return s.initial
}

func (s *BinarySource) ReadTransition() (Transition, error) {
	return s.read()
}

func (s *BinarySource) Samples() (uint64, bool) {
	return s.n, s.eof
}

// PackedSource reads 8 samples per byte, least significant bit first.
type PackedSource struct {
	levelStream
}

type packedReader struct {
	r    io.ByteReader
	cur  byte
	left int
}

func (p *packedReader) next() (bool, error) {
	if p.left == 0 {
		var b, err = p.r.ReadByte()
		if err != nil {
			return false, err
		}
		p.cur = b
		p.left = 8
	}
	var bit = p.cur&1 != 0
	p.cur >>= 1
	p.left--
	return bit, nil
}

func NewPackedSource(r io.Reader) (*PackedSource, error) {
	var br, ok = r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	var s = &PackedSource{levelStream{bits: &packedReader{r: br}}}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PackedSource) InitialLevel() bool {
	return s.initial
}

func (s *PackedSource) ReadTransition() (Transition, error) {
	return s.read()
}

func (s *PackedSource) Samples() (uint64, bool) {
	return s.n, s.eof
}

/*------------------------------------------------------------------
 *
 * Name:	WriteBinary
 *
 * Purpose:	Write a capture as sigrok binary, one byte per
 *		sample, line on bit 0.
 *
 *---------------------------------------------------------------*/

func WriteBinary(w io.Writer, src *MemorySource) error {
	var bw = bufio.NewWriter(w)
	var n, _ = src.Samples()

	var level = src.InitialLevel()
	var pos uint64
	var transitions = src.Transitions()

	for pos < n {
		var until = n
		if len(transitions) > 0 {
			until = min(transitions[0].Sample, n)
		}
		var b = byte(IfThenElse(level, 1, 0))
		for ; pos < until; pos++ {
			if err := bw.WriteByte(b); err != nil {
				return err
			}
		}
		if len(transitions) > 0 {
			level = transitions[0].Level
			transitions = transitions[1:]
		}
	}

	return bw.Flush()
}

// WritePacked writes a capture in the PackedSource layout.
// The last byte is padded with the final level.
func WritePacked(w io.Writer, src *MemorySource) error {
	var bw = bufio.NewWriter(w)
	var n, _ = src.Samples()

	var cur byte
	var fill = 0
	for i := range n {
		if src.LevelAt(i) {
			cur |= 1 << fill
		}
		fill++
		if fill == 8 {
			if err := bw.WriteByte(cur); err != nil {
				return err
			}
			cur, fill = 0, 0
		}
	}
	if fill > 0 {
		if n > 0 && src.LevelAt(n-1) {
			cur |= 0xff << fill
		}
		if err := bw.WriteByte(cur); err != nil {
			return err
		}
	}

	return bw.Flush()
}
