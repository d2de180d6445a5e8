package dshot

/*------------------------------------------------------------------
 *
 * Purpose:	Read and write Value Change Dump files.
 *
 * Description:	PulseView and most logic analyzer software can export
 *		VCD.  Times are converted to sample numbers at the
 *		decoder's sample rate so the rest of the decoder never
 *		sees the file's time scale.
 *
 *		Only single bit wires are used.  x and z read as low.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

type VCDSource struct {
	sc         *bufio.Scanner
	sampleRate uint64
	timescale  float64 // Seconds per VCD time unit.
	id         string
	name       string

	now     uint64 // Current time, in samples.
	last    uint64
	level   bool
	initial bool

	// First transition, read while looking for the initial level.
	held    *Transition
	eof     bool
	samples uint64
}

var timescaleUnits = map[string]float64{
	"s":  1,
	"ms": 1e-3,
	"us": 1e-6,
	"ns": 1e-9,
	"ps": 1e-12,
	"fs": 1e-15,
}

func parseTimescale(s string) (float64, error) {
	s = strings.TrimSpace(s)
	var i = 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	var n, err = strconv.Atoi(s[:i])
	if err != nil {
		return 0, fmt.Errorf("bad timescale %q", s)
	}
	var unit, ok = timescaleUnits[strings.TrimSpace(s[i:])]
	if !ok {
		return 0, fmt.Errorf("bad timescale unit %q", s)
	}
	return float64(n) * unit, nil
}

/*------------------------------------------------------------------
 *
 * Name:	NewVCDSource
 *
 * Inputs:	r		- VCD text.
 *		sampleRate	- Sample rate for the decoder.
 *		channel		- Wire name, e.g. "D0", or an index
 *				  counting $var declarations from 0.
 *
 *---------------------------------------------------------------*/

func NewVCDSource(r io.Reader, sampleRate uint64, channel string) (*VCDSource, error) {
	if sampleRate == 0 {
		return nil, fmt.Errorf("%w: cannot read VCD without sample rate", ErrConfiguration)
	}

	var sc = bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	var v = &VCDSource{sc: sc, sampleRate: sampleRate, timescale: 1e-9}

	if err := v.readHeader(channel); err != nil {
		return nil, err
	}
	if err := v.readInitial(); err != nil {
		return nil, err
	}

	return v, nil
}

// Words up to the next $end.
func (v *VCDSource) untilEnd() ([]string, error) {
	var words []string
	for v.sc.Scan() {
		var w = v.sc.Text()
		if w == "$end" {
			return words, nil
		}
		words = append(words, w)
	}
	if err := v.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.ErrUnexpectedEOF
}

func (v *VCDSource) readHeader(channel string) error {
	var index, indexErr = strconv.Atoi(channel)
	var vars = 0

	for v.sc.Scan() {
		var w = v.sc.Text()
		switch w {
		case "$timescale":
			var words, err = v.untilEnd()
			if err != nil {
				return err
			}
			var ts, tsErr = parseTimescale(strings.Join(words, ""))
			if tsErr != nil {
				return tsErr
			}
			v.timescale = ts

		case "$var":
			// $var wire 1 ! D0 $end
			var words, err = v.untilEnd()
			if err != nil {
				return err
			}
			if len(words) < 4 {
				return fmt.Errorf("bad $var declaration %v", words)
			}
			var matches = words[3] == channel || (indexErr == nil && index == vars)
			if matches && v.id == "" {
				if words[1] != "1" {
					return fmt.Errorf("VCD wire %s is %s bits wide, need 1", words[3], words[1])
				}
				v.id = words[2]
				v.name = words[3]
			}
			vars++

		case "$enddefinitions":
			if _, err := v.untilEnd(); err != nil {
				return err
			}
			if v.id == "" {
				return fmt.Errorf("VCD has no wire %q", channel)
			}
			return nil

		default:
			if strings.HasPrefix(w, "$") {
				if _, err := v.untilEnd(); err != nil {
					return err
				}
			}
		}
	}
	if err := v.sc.Err(); err != nil {
		return err
	}
	return errors.New("VCD ended before $enddefinitions")
}

// Changes at sample 0 give the initial level.
func (v *VCDSource) readInitial() error {
	for {
		var t, err = v.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if t.Sample == 0 {
			v.initial = t.Level
			continue
		}
		v.held = &t
		return nil
	}
}

func (v *VCDSource) toSamples(t uint64) uint64 {
	return uint64(math.Round(float64(t) * v.timescale * float64(v.sampleRate)))
}

func (v *VCDSource) next() (Transition, error) {
	for v.sc.Scan() {
		var w = v.sc.Text()

		switch {
		case strings.HasPrefix(w, "#"):
			var t, err = strconv.ParseUint(w[1:], 10, 64)
			if err != nil {
				return Transition{}, fmt.Errorf("bad VCD time %q", w)
			}
			v.now = v.toSamples(t)
			v.last = max(v.last, v.now)

		case strings.HasPrefix(w, "$"):
			// $dumpvars, $end and friends around the values.
			if w == "$comment" {
				if _, err := v.untilEnd(); err != nil {
					return Transition{}, err
				}
			}

		case w[0] == 'b' || w[0] == 'B' || w[0] == 'r' || w[0] == 'R':
			// Vector or real value, always followed by an identifier.
			v.sc.Scan()

		default:
			if w[1:] != v.id {
				continue
			}
			var level = w[0] == '1'
			if level == v.level && v.now != 0 {
				continue
			}
			v.level = level
			return Transition{Sample: v.now, Level: level}, nil
		}
	}
	if err := v.sc.Err(); err != nil {
		return Transition{}, err
	}

	v.eof = true
	v.samples = v.last + 1
	return Transition{}, io.EOF
}

func (v *VCDSource) InitialLevel() bool {
	return v.initial
}

func (v *VCDSource) ReadTransition() (Transition, error) {
	if v.held != nil {
		var t = *v.held
		v.held = nil
		return t, nil
	}
	return v.next()
}

// Samples is known once the whole file has been read.  The last
// time stamp counts as part of the capture.
func (v *VCDSource) Samples() (uint64, bool) {
	return v.samples, v.eof
}

func (v *VCDSource) Name() string {
	return v.name
}

/*------------------------------------------------------------------
 *
 * Name:	WriteVCD
 *
 * Purpose:	Write a capture as VCD with one wire named D0.
 *
 * Description:	The time scale is the largest unit that represents
 *		every sample exactly, falling back to picoseconds.
 *
 *---------------------------------------------------------------*/

func WriteVCD(w io.Writer, src *MemorySource, sampleRate uint64) error {
	if sampleRate == 0 {
		return fmt.Errorf("%w: cannot write VCD without sample rate", ErrConfiguration)
	}

	var unit = "1 ps"
	var perSample = float64(1e12) / float64(sampleRate)
	for _, u := range []struct {
		name string
		ps   uint64
	}{{"1 us", 1000000}, {"1 ns", 1000}, {"1 ps", 1}} {
		if 1000000000000%sampleRate == 0 && (1000000000000/sampleRate)%u.ps == 0 {
			unit = u.name
			perSample = float64(1000000000000/sampleRate) / float64(u.ps)
			break
		}
	}

	var bw = bufio.NewWriter(w)
	var bit = func(level bool) string {
		return IfThenElse(level, "1", "0")
	}

	fmt.Fprintf(bw, "$version dshotdec $end\n")
	fmt.Fprintf(bw, "$comment samplerate %d Hz $end\n", sampleRate)
	fmt.Fprintf(bw, "$timescale %s $end\n", unit)
	fmt.Fprintf(bw, "$scope module dshot $end\n")
	fmt.Fprintf(bw, "$var wire 1 ! D0 $end\n")
	fmt.Fprintf(bw, "$upscope $end\n")
	fmt.Fprintf(bw, "$enddefinitions $end\n")
	fmt.Fprintf(bw, "#0\n$dumpvars\n%s!\n$end\n", bit(src.InitialLevel()))

	for _, t := range src.Transitions() {
		fmt.Fprintf(bw, "#%d\n%s!\n", uint64(math.Round(float64(t.Sample)*perSample)), bit(t.Level))
	}

	var n, _ = src.Samples()
	if n > 0 {
		fmt.Fprintf(bw, "#%d\n", uint64(math.Round(float64(n-1)*perSample)))
	}

	return bw.Flush()
}
