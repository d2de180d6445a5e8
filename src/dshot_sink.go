package dshot

/*------------------------------------------------------------------
 *
 * Purpose:	Places for decoded results to go.
 *
 * Description:	Collector	keeps everything in memory.
 *		MultiSink	passes each result to several sinks.
 *		Printer		human readable annotations.
 *		ResultLog	CSV file, see log.go.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Record is either a command or a telemetry result, so that
// ordering between the two can be checked.
type Record struct {
	Command   *CommandResult
	Telemetry *TelemetryResult
}

func (r Record) Start() uint64 {
	if r.Command != nil {
		return r.Command.Start
	}
	return r.Telemetry.Start
}

type Collector struct {
	Records []Record
}

func (c *Collector) PutCommand(r *CommandResult) {
	c.Records = append(c.Records, Record{Command: r})
}

func (c *Collector) PutTelemetry(r *TelemetryResult) {
	c.Records = append(c.Records, Record{Telemetry: r})
}

func (c *Collector) Commands() []*CommandResult {
	var out []*CommandResult
	for _, r := range c.Records {
		if r.Command != nil {
			out = append(out, r.Command)
		}
	}
	return out
}

func (c *Collector) Telemetry() []*TelemetryResult {
	var out []*TelemetryResult
	for _, r := range c.Records {
		if r.Telemetry != nil {
			out = append(out, r.Telemetry)
		}
	}
	return out
}

type MultiSink []Sink

func (m MultiSink) PutCommand(r *CommandResult) {
	for _, s := range m {
		s.PutCommand(r)
	}
}

func (m MultiSink) PutTelemetry(r *TelemetryResult) {
	for _, s := range m {
		s.PutTelemetry(r)
	}
}

/*------------------------------------------------------------------
 *
 * Name:	Printer
 *
 * Purpose:	Print one line per result, like the annotation rows
 *		of a logic analyzer display.
 *
 *		DSHOT[n] m:ss.ssssss Throttle 1046 T0 CRC rx 5 calc 5
 *		DSHOT[n] m:ss.ssssss Command 0001 T1 CRC rx 3 calc 2 CRC INVALID
 *		TELEM[n] m:ss.ssssss eRPM period 1234 us 48622 eRPM CRC rx 9 calc 9
 *		TELEM[n] m:ss.ssssss GCR ERROR invalid pattern 0b00000 in group 2
 *
 *---------------------------------------------------------------*/

type Printer struct {
	tc         *textColor
	sampleRate uint64
	showBits   bool

	timestamp *strftime.Strftime
	now       func() time.Time

	commands  int
	telemetry int
}

type PrinterOption func(*Printer) error

// WithTimestamp precedes each line with the wall clock time in strftime format.
func WithTimestamp(format string) PrinterOption {
	return func(p *Printer) error {
		if format == "" {
			return nil
		}
		var f, err = strftime.New(format)
		if err != nil {
			return fmt.Errorf("timestamp format %q: %w", format, err)
		}
		p.timestamp = f
		return nil
	}
}

func WithBits(show bool) PrinterOption {
	return func(p *Printer) error {
		p.showBits = show
		return nil
	}
}

// WithColor selects the text colour level, 0 for none.
func WithColor(level int) PrinterOption {
	return func(p *Printer) error {
		p.tc = newTextColor(p.tc.w, level)
		return nil
	}
}

func withClock(now func() time.Time) PrinterOption {
	return func(p *Printer) error {
		p.now = now
		return nil
	}
}

func NewPrinter(w io.Writer, sampleRate uint64, opts ...PrinterOption) (*Printer, error) {
	var p = &Printer{
		tc:         newTextColor(w, 0),
		sampleRate: sampleRate,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Position in the capture as minutes and seconds.
func (p *Printer) offset(sample uint64) string {
	if p.sampleRate == 0 {
		return fmt.Sprintf("#%d", sample)
	}
	var sec = float64(sample) / float64(p.sampleRate)
	var minutes = int(sec / 60)
	sec -= float64(minutes * 60)
	return fmt.Sprintf("%d:%09.6f", minutes, sec)
}

func (p *Printer) prefix(kind string, n int, sample uint64) string {
	var ts string
	if p.timestamp != nil {
		ts = p.timestamp.FormatString(p.now()) + " "
	}
	return fmt.Sprintf("%s%s[%d] %s", ts, kind, n, p.offset(sample))
}

func formatBits(bits []BitSample, groups ...int) string {
	var sb strings.Builder
	var g = 0
	var inGroup = 0
	for _, b := range bits {
		if g < len(groups) && inGroup == groups[g] {
			sb.WriteByte(' ')
			g++
			inGroup = 0
		}
		if b.Malformed {
			sb.WriteByte('?')
		} else if b.Value {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
		inGroup++
	}
	return sb.String()
}

func (p *Printer) PutCommand(r *CommandResult) {
	p.commands++

	var kind = "Throttle"
	if r.IsCommand() {
		kind = "Command"
	}

	p.tc.set(DW_COLOR_DECODED)
	p.tc.printf("%s %s %04d T%d CRC rx %d calc %d",
		p.prefix("DSHOT", p.commands, r.Start), kind, r.Value, IfThenElse(r.TelemetryRequest, 1, 0),
		r.ReceivedChecksum, r.CalculatedChecksum)
	if !r.ChecksumValid {
		p.tc.set(DW_COLOR_ERROR)
		p.tc.printf(" CRC INVALID")
	}
	p.tc.reset()
	p.tc.printf("\n")

	if p.showBits {
		p.tc.set(DW_COLOR_DEBUG)
		p.tc.printf("    bits %s\n", formatBits(r.Bits, 11, 1))
		p.tc.reset()
	}
}

func (p *Printer) PutTelemetry(r *TelemetryResult) {
	p.telemetry++

	var prefix = p.prefix("TELEM", p.telemetry, r.Start)

	if r.Err != nil {
		p.tc.set(DW_COLOR_ERROR)
		p.tc.printf("%s GCR ERROR %s\n", prefix, strings.TrimPrefix(r.Err.Error(), ErrGCRDecode.Error()+": "))
		p.tc.reset()
		p.printTelemetryBits(r)
		return
	}

	p.tc.set(DW_COLOR_REC)
	switch {
	case r.NotImplemented():
		p.tc.printf("%s EDT 0x%03x not implemented", prefix, r.Payload)
	default:
		p.tc.printf("%s eRPM period %d us %d eRPM", prefix, r.PeriodUs, r.ERPM())
	}
	p.tc.printf(" CRC rx %d calc %d", r.ReceivedChecksum, r.CalculatedChecksum)
	if !r.ChecksumValid {
		p.tc.set(DW_COLOR_ERROR)
		p.tc.printf(" CRC INVALID")
	}
	p.tc.reset()
	p.tc.printf("\n")

	p.printTelemetryBits(r)
}

func (p *Printer) printTelemetryBits(r *TelemetryResult) {
	if !p.showBits {
		return
	}
	p.tc.set(DW_COLOR_DEBUG)
	p.tc.printf("    line %s\n", formatBits(r.Bits, 1, 5, 5, 5))
	p.tc.printf("    gcr    %020b\n", r.GCR)
	p.tc.reset()
}
