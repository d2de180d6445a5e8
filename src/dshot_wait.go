package dshot

/*------------------------------------------------------------------
 *
 * Purpose:	Advance through a logic capture until one of a set
 *		of conditions holds.
 *
 * Description:	This is the only place the decoder waits.  A capture
 *		is described by its transitions, so long idle stretches
 *		cost nothing.
 *
 *		A wait always moves forward by at least one sample,
 *		unless a skip of 0 is requested.  It returns at the
 *		earliest sample where any condition holds, with one
 *		flag per condition.  More than one can hold at once,
 *		e.g. an edge exactly when a timeout expires.
 *
 *		Conditions:
 *
 *		  OnEdge(e)		line changes in direction e.
 *		  OnLevel(l)		line is at level l.
 *		  Skip(n)		n samples after the wait began.
 *		  SkipLevel(n, l)	n samples after the wait began,
 *					and only if the line is at level l
 *					on that sample.  If not, this
 *					condition can no longer match
 *					during this wait.
 *
 *		If every condition becomes impossible, the wait stops
 *		there with all flags false.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
)

type Edge int

const (
	EDGE_NONE Edge = iota
	EDGE_RISING
	EDGE_FALLING
)

type Level int

const (
	LEVEL_ANY Level = iota
	LEVEL_LOW
	LEVEL_HIGH
)

type Condition struct {
	Edge    Edge
	Level   Level
	Skip    uint64
	HasSkip bool
}

func OnEdge(e Edge) Condition {
	return Condition{Edge: e}
}

func OnLevel(l Level) Condition {
	return Condition{Level: l}
}

func Skip(n uint64) Condition {
	return Condition{Skip: n, HasSkip: true}
}

func SkipLevel(n uint64, l Level) Condition {
	return Condition{Skip: n, HasSkip: true, Level: l}
}

// SampleSource is what the protocol decoder needs from a capture.
type SampleSource interface {
	// Current position in the capture.
	SampleNum() uint64

	// Block until a condition holds.  io.EOF when the capture ends first.
	Wait(conds ...Condition) ([]bool, error)
}

// Transition means the line takes Level starting at Sample.
type Transition struct {
	Sample uint64
	Level  bool
}

// TransitionReader supplies transitions in increasing sample order,
// then io.EOF.
type TransitionReader interface {
	InitialLevel() bool
	ReadTransition() (Transition, error)
}

// Bounded is implemented by readers that know where the capture ends,
// at least once they have hit the end.  This lets a timeout expire
// after the last transition.
type Bounded interface {
	Samples() (uint64, bool)
}

// Matcher implements SampleSource for any TransitionReader.
type Matcher struct {
	r TransitionReader

	cursor uint64
	level  bool

	next    Transition
	hasNext bool
	eof     bool
}

func NewMatcher(r TransitionReader) *Matcher {
	return &Matcher{
		r:     r,
		level: r.InitialLevel(),
	}
}

func (m *Matcher) SampleNum() uint64 {
	return m.cursor
}

// Level is the line level at the current sample.
func (m *Matcher) Level() bool {
	return m.level
}

func (m *Matcher) peek() (Transition, bool, error) {
	for !m.hasNext && !m.eof {
		var t, err = m.r.ReadTransition()
		if errors.Is(err, io.EOF) {
			m.eof = true
			break
		}
		if err != nil {
			return Transition{}, false, err
		}

		// Anything at or before where we are just sets the level.
		if t.Sample <= m.cursor {
			m.level = t.Level
			continue
		}
		// Not a change, ignore.
		if t.Level == m.level {
			continue
		}

		m.next = t
		m.hasNext = true
	}

	return m.next, m.hasNext, nil
}

func levelMatches(l Level, level bool) bool {
	switch l {
	case LEVEL_LOW:
		return !level
	case LEVEL_HIGH:
		return level
	default:
		return true
	}
}

func edgeMatches(e Edge, prev bool, level bool) bool {
	switch e {
	case EDGE_RISING:
		return !prev && level
	case EDGE_FALLING:
		return prev && !level
	default:
		return false
	}
}

/*------------------------------------------------------------------
 *
 * Name:	Wait
 *
 * Purpose:	Advance to the earliest sample where any of the
 *		conditions holds.
 *
 * Returns:	One flag per condition.
 *		io.EOF if the capture ends before anything matches.
 *
 *---------------------------------------------------------------*/

func (m *Matcher) Wait(conds ...Condition) ([]bool, error) {
	if len(conds) == 0 {
		return nil, fmt.Errorf("%w: wait with no conditions", ErrConfiguration)
	}

	var start = m.cursor
	var matched = make([]bool, len(conds))
	var dead = make([]bool, len(conds))

	// A skip of 0 is checked on the current sample.
	var found = false
	for i, c := range conds {
		if c.HasSkip && c.Skip == 0 {
			if levelMatches(c.Level, m.level) {
				matched[i] = true
				found = true
			} else {
				dead[i] = true
			}
		}
	}
	if found {
		return matched, nil
	}

	for {
		// Find the next sample worth looking at.

		var target uint64
		var haveTarget = false
		var consider = func(s uint64) {
			if !haveTarget || s < target {
				target = s
				haveTarget = true
			}
		}

		var live = 0
		for i, c := range conds {
			if dead[i] {
				continue
			}
			live++
			if c.HasSkip {
				consider(start + c.Skip)
			} else if c.Edge == EDGE_NONE && levelMatches(c.Level, m.level) {
				consider(m.cursor + 1)
			}
		}
		if live == 0 {
			return matched, nil
		}

		var t, hasT, err = m.peek()
		if err != nil {
			return nil, err
		}
		if hasT {
			consider(t.Sample)
		}

		if !haveTarget {
			return nil, io.EOF
		}

		if !hasT || t.Sample > target {
			// Nothing happens on the line before target.  Can we get there?
			if m.eof {
				var b, ok = m.r.(Bounded)
				if !ok {
					return nil, io.EOF
				}
				var n, known = b.Samples()
				if !known || target >= n {
					return nil, io.EOF
				}
			}
		}

		var prev = m.level
		m.cursor = target
		if hasT && t.Sample == target {
			m.level = t.Level
			m.hasNext = false
		}

		for i, c := range conds {
			if dead[i] {
				continue
			}
			switch {
			case c.HasSkip:
				if start+c.Skip != target {
					continue
				}
				if levelMatches(c.Level, m.level) {
					matched[i] = true
					found = true
				} else {
					dead[i] = true
				}
			case c.Edge != EDGE_NONE:
				if edgeMatches(c.Edge, prev, m.level) {
					matched[i] = true
					found = true
				}
			default:
				if levelMatches(c.Level, m.level) {
					matched[i] = true
					found = true
				}
			}
		}

		if found {
			return matched, nil
		}
	}
}
