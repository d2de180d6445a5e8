package dshot

/********************************************************************************
 *
 * Purpose:	Extract DShot command frames, and bidirectional telemetry
 *		replies, from a logic capture.
 *
 * Description:	Command phase.
 *
 *		Normal DShot idles low and each bit starts with a rising
 *		edge.  Bidirectional DShot is inverted: idle high, each bit
 *		starts with a falling edge.
 *
 *		We don't know a bit's value until the next bit starts
 *		because the duty cycle is measured against the start of
 *		the next bit.  The last bit of a frame has no next bit,
 *		so when the line has been quiet for 3 bit periods the
 *		pending bit is closed off one bit period after it started
 *		and the frame is complete.
 *
 *		Telemetry phase (bidirectional only, and only after a
 *		command frame with a good checksum).
 *
 *		The ESC answers after about 30 us.  The reply starts with
 *		a falling edge.  From there the line is sampled in the
 *		middle of each telemetry bit.  If the reply does not
 *		start in time we go back to looking for commands.
 *
 *******************************************************************************/

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

type Phase int

const (
	PHASE_AWAIT_COMMAND Phase = iota
	PHASE_COMMAND_BIT
	PHASE_AWAIT_TELEMETRY
	PHASE_TELEMETRY_BIT
)

func (p Phase) String() string {
	switch p {
	case PHASE_AWAIT_COMMAND:
		return "AwaitingCommand"
	case PHASE_COMMAND_BIT:
		return "ReceivingCommandBit"
	case PHASE_AWAIT_TELEMETRY:
		return "AwaitingTelemetryStart"
	case PHASE_TELEMETRY_BIT:
		return "ReceivingTelemetryBit"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Sink receives results in the order they were seen in the capture.
type Sink interface {
	PutCommand(r *CommandResult)
	PutTelemetry(r *TelemetryResult)
}

// Counts for the summary at the end of a run.
type Stats struct {
	CommandFrames    int
	ChecksumErrors   int
	DiscardedFrames  int
	TelemetryFrames  int
	TelemetryErrors  int // Bad GCR group.
	TelemetryMissing int // Good command frame, no reply in time.
	MalformedBits    int

	TelemetryChecksumErrors int
}

func (s *Stats) Add(o Stats) {
	s.CommandFrames += o.CommandFrames
	s.ChecksumErrors += o.ChecksumErrors
	s.DiscardedFrames += o.DiscardedFrames
	s.TelemetryFrames += o.TelemetryFrames
	s.TelemetryErrors += o.TelemetryErrors
	s.TelemetryMissing += o.TelemetryMissing
	s.MalformedBits += o.MalformedBits
	s.TelemetryChecksumErrors += o.TelemetryChecksumErrors
}

// Good is the number of command frames with a valid checksum.
func (s *Stats) Good() int {
	return s.CommandFrames - s.ChecksumErrors
}

type Session struct {
	timing *Timing
	src    SampleSource
	sink   Sink
	logger *log.Logger

	phase Phase

	// Bit currently being timed.
	hasStart     bool
	hasMid       bool
	pendingStart uint64
	pendingMid   uint64

	cmd   *CommandFrame
	telem *TelemetryFrame

	lastCommand   *CommandResult
	telemDeadline uint64
	telemStart    uint64

	stats Stats
}

type SessionOption func(*Session)

func WithLogger(l *log.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

/*------------------------------------------------------------------
 *
 * Name:	NewSession
 *
 * Inputs:	timing	- From NewTiming.  Fixes polarity and thresholds
 *			  for the whole session.
 *
 *		src	- Where the samples come from.
 *
 *		sink	- Where results go.
 *
 * Returns:	Session in PHASE_AWAIT_COMMAND, or an error wrapping
 *		ErrConfiguration.
 *
 *---------------------------------------------------------------*/

func NewSession(timing *Timing, src SampleSource, sink Sink, opts ...SessionOption) (*Session, error) {
	if timing == nil || timing.SampleRate == 0 {
		return nil, fmt.Errorf("%w: cannot decode without sample rate", ErrConfiguration)
	}
	if timing.BitPeriodSamples == 0 {
		return nil, fmt.Errorf("%w: bit period is zero samples", ErrConfiguration)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: no sample source", ErrConfiguration)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: no result sink", ErrConfiguration)
	}

	var s = &Session{
		timing: timing,
		src:    src,
		sink:   sink,
		logger: log.Default(),
		phase:  PHASE_AWAIT_COMMAND,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cmd = NewCommandFrame(timing.Bidirectional)

	return s, nil
}

func (s *Session) Phase() Phase {
	return s.phase
}

func (s *Session) Stats() Stats {
	return s.stats
}

// LastCommand is the most recent command frame with a good checksum.
func (s *Session) LastCommand() *CommandResult {
	return s.lastCommand
}

/*------------------------------------------------------------------
 *
 * Name:	Run
 *
 * Purpose:	Keep stepping until the capture ends, the context is
 *		cancelled, or the source fails.
 *
 * Returns:	Error from the source, wrapped.  End of capture is
 *		errors.Is(err, io.EOF).
 *
 *---------------------------------------------------------------*/

func (s *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
}

// Step performs one wait and handles what it found.
func (s *Session) Step() error {
	var err error

	switch s.phase {
	case PHASE_AWAIT_COMMAND, PHASE_COMMAND_BIT:
		err = s.stepCommand()
	case PHASE_AWAIT_TELEMETRY:
		err = s.stepTelemetryStart()
	case PHASE_TELEMETRY_BIT:
		err = s.stepTelemetryBit()
	}

	if err != nil {
		if errors.Is(err, io.EOF) {
			s.logger.Debug("end of capture", "sample", s.src.SampleNum(), "phase", s.phase)
		}
		return fmt.Errorf("%s at sample %d: %w", s.phase, s.src.SampleNum(), err)
	}
	return nil
}

func (s *Session) edges() (Edge, Edge) {
	if s.timing.Bidirectional {
		return EDGE_FALLING, EDGE_RISING
	}
	return EDGE_RISING, EDGE_FALLING
}

func (s *Session) clearPending() {
	s.hasStart = false
	s.hasMid = false
	s.pendingStart = 0
	s.pendingMid = 0
}

func (s *Session) stepCommand() error {
	var startEdge, endEdge = s.edges()

	var matched, err = s.src.Wait(OnEdge(startEdge), OnEdge(endEdge), Skip(s.timing.InterFrameTimeoutSamples))
	if err != nil {
		return err
	}
	var now = s.src.SampleNum()

	var startSeen, endSeen, quiet = matched[0], matched[1], matched[2]

	if quiet {
		switch {
		case s.hasStart && s.hasMid:
			// Last bit of the frame.  No next edge, so assume one bit period.
			s.addCommandBit(newCommandBit(s.pendingStart, s.pendingMid, s.pendingStart+s.timing.BitPeriodSamples))
			s.clearPending()
			s.finishCommand()

		case s.hasStart:
			// Line stuck at the active level.
			s.logger.Debug("command bit never ended", "start", s.pendingStart, "bits", s.cmd.Len())
			s.discardCommand()

		case s.cmd.Len() > 0:
			s.discardCommand()
		}
	}

	if s.phase == PHASE_AWAIT_TELEMETRY {
		if startSeen {
			// Reply started on the very sample the frame timed out.
			s.beginTelemetry(now)
		}
		return nil
	}

	switch {
	case startSeen && !s.hasStart && !s.hasMid:
		s.pendingStart = now
		s.hasStart = true

	case endSeen && s.hasStart && !s.hasMid:
		s.pendingMid = now
		s.hasMid = true

	case startSeen && s.hasStart && s.hasMid:
		// Start of the next bit closes off the previous one.
		s.addCommandBit(newCommandBit(s.pendingStart, s.pendingMid, now))
		s.pendingStart = now
		s.hasMid = false
	}

	if s.hasStart {
		s.phase = PHASE_COMMAND_BIT
	} else {
		s.phase = PHASE_AWAIT_COMMAND
	}

	return nil
}

func (s *Session) addCommandBit(b BitSample) {
	if b.Malformed {
		s.stats.MalformedBits++
		s.logger.Warn("malformed command bit", "start", b.Start, "mid", b.Mid, "end", b.End)
	}
	s.cmd.AddBit(b)
}

func (s *Session) discardCommand() {
	if s.cmd.Len() > 0 {
		s.stats.DiscardedFrames++
		s.logger.Debug("discarding partial command frame", "bits", s.cmd.Len())
	}
	s.cmd = NewCommandFrame(s.timing.Bidirectional)
	s.clearPending()
	s.phase = PHASE_AWAIT_COMMAND
}

func (s *Session) finishCommand() {
	var frame = s.cmd
	s.cmd = NewCommandFrame(s.timing.Bidirectional)
	s.phase = PHASE_AWAIT_COMMAND

	var r, err = frame.Finalize()
	if err != nil {
		s.stats.DiscardedFrames++
		if errors.Is(err, ErrIncompleteFrame) {
			s.logger.Debug("discarding command frame", "err", err)
		} else {
			s.logger.Warn("discarding command frame", "err", err)
		}
		return
	}

	s.stats.CommandFrames++
	if !r.ChecksumValid {
		s.stats.ChecksumErrors++
	}
	s.sink.PutCommand(r)

	if !r.ChecksumValid {
		return
	}
	s.lastCommand = r

	if s.timing.Bidirectional {
		s.telemDeadline = r.End + s.timing.TelemetryWaitSamples
		s.phase = PHASE_AWAIT_TELEMETRY
	}
}

func (s *Session) stepTelemetryStart() error {
	var now = s.src.SampleNum()
	if now >= s.telemDeadline {
		s.noTelemetry()
		return nil
	}

	var matched, err = s.src.Wait(OnEdge(EDGE_FALLING), Skip(s.telemDeadline-now))
	if err != nil {
		return err
	}

	if matched[0] {
		s.beginTelemetry(s.src.SampleNum())
	} else {
		s.noTelemetry()
	}
	return nil
}

func (s *Session) noTelemetry() {
	s.stats.TelemetryMissing++
	s.logger.Debug("no telemetry reply", "deadline", s.telemDeadline)
	s.phase = PHASE_AWAIT_COMMAND
}

func (s *Session) beginTelemetry(start uint64) {
	s.logger.Debug("telemetry start", "sample", start)
	s.telemStart = start
	s.telem = NewTelemetryFrame(s.timing.Bidirectional, s.timing.ExtendedTelemetryForced)
	s.phase = PHASE_TELEMETRY_BIT
}

func (s *Session) stepTelemetryBit() error {
	// Bit i spans half bits 2i to 2i+2 from the start of the reply.
	var i = uint64(s.telem.Len())
	var start = s.telemStart + s.timing.TelemetryOffset(2*i)
	var mid = s.telemStart + s.timing.TelemetryOffset(2*i+1)
	var end = s.telemStart + s.timing.TelemetryOffset(2*i+2)

	var now = s.src.SampleNum()
	Assert(mid > now && end > mid)

	// Middle of the bit.
	var matched, err = s.src.Wait(SkipLevel(mid-now, LEVEL_LOW), SkipLevel(mid-now, LEVEL_HIGH))
	if err != nil {
		return err
	}
	var at = s.src.SampleNum()

	var value, classifyErr = ClassifyTelemetryBit(matched[0], matched[1])

	// On to the end of the bit.
	_, err = s.src.Wait(Skip(end - at))
	if err != nil {
		return err
	}

	var b = BitSample{
		Start:     start,
		End:       s.src.SampleNum(),
		Value:     value,
		Malformed: classifyErr != nil,
	}
	if classifyErr != nil {
		s.stats.MalformedBits++
		s.logger.Warn("malformed telemetry bit", "sample", at, "err", classifyErr)
	}
	s.telem.AddBit(b)

	if s.telem.Complete() {
		s.finishTelemetry()
	}
	return nil
}

func (s *Session) finishTelemetry() {
	var frame = s.telem
	s.telem = nil
	s.phase = PHASE_AWAIT_COMMAND

	var r, err = frame.Finalize()
	if r == nil {
		s.logger.Warn("discarding telemetry frame", "err", err)
		return
	}

	s.stats.TelemetryFrames++
	if err != nil {
		s.stats.TelemetryErrors++
		s.logger.Debug("telemetry GCR error", "start", r.Start, "err", err)
	} else if !r.ChecksumValid {
		s.stats.TelemetryChecksumErrors++
	}
	s.sink.PutTelemetry(r)
}
