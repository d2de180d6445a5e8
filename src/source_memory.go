package dshot

import (
	"io"
	"slices"
)

// MemorySource is a capture held as a list of transitions.
// The generator produces these and the tests feed them to the decoder.
type MemorySource struct {
	initial     bool
	transitions []Transition
	length      uint64
	pos         int
}

// NewMemorySource takes transitions in increasing sample order.
// length is the total number of samples in the capture.
func NewMemorySource(initial bool, transitions []Transition, length uint64) *MemorySource {
	return &MemorySource{
		initial:     initial,
		transitions: transitions,
		length:      length,
	}
}

func (s *MemorySource) InitialLevel() bool {
	return s.initial
}

func (s *MemorySource) ReadTransition() (Transition, error) {
	if s.pos >= len(s.transitions) {
		return Transition{}, io.EOF
	}
	var t = s.transitions[s.pos]
	s.pos++
	return t, nil
}

func (s *MemorySource) Samples() (uint64, bool) {
	return s.length, true
}

func (s *MemorySource) Transitions() []Transition {
	return s.transitions
}

// Rewind to the start so the same capture can be decoded again.
func (s *MemorySource) Rewind() {
	s.pos = 0
}

// LevelAt is the line level on sample n.
func (s *MemorySource) LevelAt(n uint64) bool {
	var i, found = slices.BinarySearchFunc(s.transitions, n, func(t Transition, n uint64) int {
		switch {
		case t.Sample < n:
			return -1
		case t.Sample > n:
			return 1
		default:
			return 0
		}
	})
	if found {
		return s.transitions[i].Level
	}
	if i == 0 {
		return s.initial
	}
	return s.transitions[i-1].Level
}

/*------------------------------------------------------------------
 *
 * Name:	LevelRecorder
 *
 * Purpose:	Build a MemorySource one level run at a time.
 *
 * Description:	Consecutive runs at the same level are merged so
 *		only real changes become transitions.
 *
 *---------------------------------------------------------------*/

type LevelRecorder struct {
	initial     bool
	level       bool
	pos         uint64
	transitions []Transition
}

func NewLevelRecorder(initial bool) *LevelRecorder {
	return &LevelRecorder{initial: initial, level: initial}
}

// Hold the line at level for n samples.
func (r *LevelRecorder) Hold(level bool, n uint64) {
	if n == 0 {
		return
	}
	if r.pos == 0 {
		r.initial = level
		r.level = level
	}
	if level != r.level {
		r.transitions = append(r.transitions, Transition{Sample: r.pos, Level: level})
		r.level = level
	}
	r.pos += n
}

// Pos is the number of samples recorded so far.
func (r *LevelRecorder) Pos() uint64 {
	return r.pos
}

func (r *LevelRecorder) Source() *MemorySource {
	return NewMemorySource(r.initial, slices.Clone(r.transitions), r.pos)
}
