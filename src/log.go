package dshot

/*------------------------------------------------------------------
 *
 * Purpose:	Save decoded frames to a log file.
 *
 * Description: Rather than saving annotations, write separated
 *		properties into CSV format for easy reading and later
 *		processing.
 *
 *		There are two alternatives here.
 *
 *		--log-file logfile	Specify full file path.
 *
 *		-l logdir		Daily names will be created here.
 *
 *		Use one or the other but not both.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// File name pattern for daily logs, UTC.
const LOG_DAILY_PATTERN = "%Y-%m-%d.csv"

var log_header = []string{
	"type", "utime", "isotime", "start_sample", "end_sample", "offset_sec",
	"value", "telem_request", "kind", "payload", "period_us", "erpm",
	"crc_rx", "crc_calc", "crc_ok", "error",
}

type ResultLog struct {
	dailyNames bool
	path       string // Directory for daily names, otherwise the file.
	daily      *strftime.Strftime

	fp       *os.File
	w        *csv.Writer
	openName string

	sampleRate uint64
	logger     *log.Logger
	now        func() time.Time
}

/*------------------------------------------------------------------
 *
 * Function:	NewResultLog
 *
 * Purpose:	Initialization at start of application.
 *
 * Inputs:	dailyNames	- True if daily names should be generated.
 *				  In this case path is a directory.
 *				  When false, path would be the file name.
 *
 *		path		- Log file name or just directory.
 *				  Use "." for current directory.
 *
 *		sampleRate	- To convert sample numbers to seconds.
 *
 *------------------------------------------------------------------*/

func NewResultLog(dailyNames bool, path string, sampleRate uint64, logger *log.Logger) (*ResultLog, error) {
	if path == "" {
		return nil, errors.New("log path is empty")
	}
	if logger == nil {
		logger = log.Default()
	}

	var l = &ResultLog{
		dailyNames: dailyNames,
		path:       path,
		sampleRate: sampleRate,
		logger:     logger,
		now:        time.Now,
	}

	if !dailyNames {
		logger.Info("Log file", "path", path)
		return l, nil
	}

	var daily, err = strftime.New(LOG_DAILY_PATTERN)
	if err != nil {
		return nil, err
	}
	l.daily = daily

	var stat, statErr = os.Stat(path)
	if statErr == nil {
		if !stat.IsDir() {
			return nil, fmt.Errorf("log file location %q is not a directory", path)
		}
		return l, nil
	}

	// Doesn't exist.  Try to create it.
	// We don't create multiple levels like "mkdir -p"
	if err := os.Mkdir(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log file location %q: %w", path, err)
	}
	logger.Info("Log file location has been created", "path", path)

	return l, nil
}

// Open the right file for now, switching files when the day changes.
func (l *ResultLog) open(now time.Time) error {
	var full = l.path
	if l.dailyNames {
		var fname = l.daily.FormatString(now)
		if l.fp != nil && fname != l.openName {
			l.Close()
		}
		full = filepath.Join(l.path, fname)
		l.openName = fname
	}

	if l.fp != nil {
		return nil
	}

	// Header only if this will be the first line.
	var _, statErr = os.Stat(full)
	var alreadyThere = statErr == nil

	l.logger.Info("Opening log file", "path", full)

	var f, err = os.OpenFile(full, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("can't open log file %q for write: %w", full, err)
	}
	l.fp = f
	l.w = csv.NewWriter(f)

	if !alreadyThere {
		if err := l.w.Write(log_header); err != nil {
			return err
		}
	}
	return nil
}

func (l *ResultLog) write(fields []string) {
	var now = l.now().UTC()

	if err := l.open(now); err != nil {
		l.logger.Error("Log write failed", "err", err)
		return
	}

	var row = append([]string{
		fields[0],
		strconv.FormatInt(now.Unix(), 10),
		now.Format("2006-01-02T15:04:05Z"),
	}, fields[1:]...)

	if err := l.w.Write(row); err != nil {
		l.logger.Error("Log write failed", "err", err)
		return
	}
	l.w.Flush()
}

func (l *ResultLog) offset(sample uint64) string {
	if l.sampleRate == 0 {
		return ""
	}
	return strconv.FormatFloat(float64(sample)/float64(l.sampleRate), 'f', 6, 64)
}

func u(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func (l *ResultLog) PutCommand(r *CommandResult) {
	var kind = IfThenElse(r.IsCommand(), "command", "throttle")
	l.write([]string{
		"cmd", u(r.Start), u(r.End), l.offset(r.Start),
		u(uint64(r.Value)), strconv.FormatBool(r.TelemetryRequest), kind, "", "", "",
		u(uint64(r.ReceivedChecksum)), u(uint64(r.CalculatedChecksum)), strconv.FormatBool(r.ChecksumValid), "",
	})
}

func (l *ResultLog) PutTelemetry(r *TelemetryResult) {
	if r.Err != nil {
		l.write([]string{
			"telem", u(r.Start), u(r.End), l.offset(r.Start),
			"", "", "", "", "", "",
			"", "", "false", r.Err.Error(),
		})
		return
	}

	var errText string
	if r.PayloadErr != nil {
		errText = r.PayloadErr.Error()
	}
	l.write([]string{
		"telem", u(r.Start), u(r.End), l.offset(r.Start),
		"", "", r.Kind.String(), fmt.Sprintf("0x%03x", r.Payload), u(uint64(r.PeriodUs)), u(uint64(r.ERPM())),
		u(uint64(r.ReceivedChecksum)), u(uint64(r.CalculatedChecksum)), strconv.FormatBool(r.ChecksumValid), errText,
	})
}

/*------------------------------------------------------------------
 *
 * Function:	Close
 *
 * Purpose:	Close any open log file.
 *		Called when exiting or when date changes.
 *
 *------------------------------------------------------------------*/

func (l *ResultLog) Close() error {
	if l.fp == nil {
		return nil
	}
	l.logger.Debug("Closing log file", "path", l.fp.Name())
	l.w.Flush()
	var err = l.fp.Close()
	l.fp = nil
	l.w = nil
	return err
}
