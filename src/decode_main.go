package dshot

/*-------------------------------------------------------------------
 *
 * Purpose:     Decode DShot from logic analyzer captures.
 *
 * Inputs:	VCD or raw sample files, or a live serial sniffer.
 *
 * Description:	For example
 *
 *		(1) Capture the motor line with PulseView at 24 MHz or
 *			more and export as VCD.
 *
 *		(2) dshot-decode -r 24000000 -B 600 --bidir capture.vcd
 *
 *		Each command frame is printed on one line, each
 *		telemetry reply on the next.  Totals at the end.
 *
 *--------------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func DecodeMain() {
	var configFile = pflag.StringP("config", "c", "", "YAML configuration file.  Options below override it.")
	var sampleRate = pflag.Uint64P("sample-rate", "r", 0, "Capture sample rate, samples / second.  Required.")
	var dshotRate = pflag.IntP("dshot-rate", "B", DEFAULT_DSHOT_RATE, "DShot rate: 150, 300, 600 or 1200.")
	var bidir = pflag.Bool("bidir", true, "Bidirectional DShot: inverted line with telemetry replies.")
	var edtForce = pflag.BoolP("edt-force", "E", false, "Treat every telemetry payload as extended telemetry.")
	var channel = pflag.IntP("channel", "C", 0, "Logic channel carrying the motor line.")
	var format = pflag.StringP("format", "f", "vcd", "Input format: vcd, bin, packed or serial.")
	var unitsize = pflag.IntP("unitsize", "u", 1, "Bytes per sample for bin format.")
	var serialBaud = pflag.Int("serial-baud", 0, "Serial port speed for the serial format.  0 leaves it alone.")
	var telemetryWait = pflag.Uint64("telemetry-wait", DEFAULT_TELEMETRY_WAIT_US, "Microseconds after a command frame to wait for a reply.")
	var showBits = pflag.BoolP("bits", "b", false, "Print the individual bits of each frame.")
	var textColor = pflag.IntP("text-color", "t", 0, "Text colors.  0=disabled. 1=default.  2=alternate.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede lines with wall clock time in strftime format, e.g. \"%H:%M:%S\".")
	var logDir = pflag.StringP("log-dir", "l", "", "Directory for daily CSV logs of decoded frames.")
	var logFile = pflag.String("log-file", "", "Single CSV log file for decoded frames.")
	var errorIfLessThan = pflag.IntP("error-if-less-than", "L", -1, "Error if less than this number of good command frames decoded.")
	var errorIfGreaterThan = pflag.IntP("error-if-greater-than", "G", -1, "Error if greater than this number of good command frames decoded.")
	var debug = pflag.BoolP("debug", "d", false, "Debug output on stderr.")
	var version = pflag.BoolP("version", "v", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s decodes DShot motor commands and bidirectional telemetry from logic captures.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... <CAPTURE FILE or DEVICE>...\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ dshot-gen -r 24000000 -B 300 -o test.vcd\n")
		fmt.Fprintf(os.Stderr, "$ dshot-decode -r 24000000 -B 300 test.vcd\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ dshot-decode -r 1000000 -B 150 -f serial /dev/ttyACM0\n")
	}

	// !!! PARSE !!!
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if *version {
		printVersion(os.Stdout, *debug)
		os.Exit(0)
	}

	var logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "dshot-decode",
		Level:  IfThenElse(*debug, log.DebugLevel, log.InfoLevel),
	})

	var config = DefaultConfig()
	if *configFile != "" {
		var c, err = LoadConfig(*configFile)
		if err != nil {
			logger.Fatal("Could not read configuration", "file", *configFile, "err", err)
		}
		config = c
	}

	// Command line wins over the file, but only where given.
	var changed = pflag.CommandLine.Changed
	if changed("sample-rate") || config.SampleRate == 0 {
		config.SampleRate = *sampleRate
	}
	if changed("dshot-rate") {
		config.DShotRate = *dshotRate
	}
	if changed("bidir") {
		config.Bidirectional = *bidir
	}
	if changed("edt-force") {
		config.EDTForce = *edtForce
	}
	if changed("channel") {
		config.Channel = *channel
	}
	if changed("format") {
		config.Format = *format
	}
	if changed("unitsize") {
		config.Unitsize = *unitsize
	}
	if changed("serial-baud") {
		config.SerialBaud = *serialBaud
	}
	if changed("telemetry-wait") {
		config.TelemetryWaitUs = *telemetryWait
	}
	if changed("timestamp-format") {
		config.TimestampFormat = *timestampFormat
	}
	if changed("log-dir") {
		config.LogDir = *logDir
	}
	if changed("log-file") {
		config.LogFile = *logFile
	}

	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		pflag.Usage()
		os.Exit(1)
	}

	if pflag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Specify capture file name or serial device on command line.\n")
		pflag.Usage()
		os.Exit(1)
	}

	text_color_init(*textColor)

	var timing, timingErr = config.Timing()
	if timingErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", timingErr)
		pflag.Usage()
		os.Exit(1)
	}

	text_color_set(DW_COLOR_INFO)
	dw_printf("%d samples per second.  DShot%d, %s.  %d samples per bit.\n",
		timing.SampleRate, config.DShotRate, IfThenElse(timing.Bidirectional, "bidirectional", "normal"), timing.BitPeriodSamples)

	var printer, printerErr = NewPrinter(os.Stdout, config.SampleRate,
		WithColor(*textColor), WithBits(*showBits), WithTimestamp(config.TimestampFormat))
	if printerErr != nil {
		logger.Fatal("Bad output options", "err", printerErr)
	}

	var sink = MultiSink{printer}

	if config.LogDir != "" || config.LogFile != "" {
		var resultLog, err = NewResultLog(config.LogDir != "", IfThenElse(config.LogDir != "", config.LogDir, config.LogFile), config.SampleRate, logger)
		if err != nil {
			logger.Fatal("Could not set up log", "err", err)
		}
		defer resultLog.Close()
		sink = append(sink, resultLog)
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var startTime = time.Now()
	var total Stats
	var totalSamples uint64

	for _, name := range pflag.Args() {
		var stats, samples, err = decodeOne(ctx, name, config, timing, sink, logger)
		if err != nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("%s: %s\n", name, err)
			os.Exit(1)
		}

		text_color_set(DW_COLOR_INFO)
		dw_printf("%d good command frames, %d with bad checksum, %d telemetry replies from %s\n",
			stats.Good(), stats.ChecksumErrors, stats.TelemetryFrames, name)
		total.Add(stats)
		totalSamples += samples
	}

	var elapsed = time.Since(startTime)
	var captureTime = float64(totalSamples) / float64(config.SampleRate)

	text_color_set(DW_COLOR_INFO)
	dw_printf("%d command frames decoded in %.3f seconds.  %.1f x realtime\n",
		total.Good(), elapsed.Seconds(), captureTime/max(elapsed.Seconds(), 1e-9))
	if timing.Bidirectional {
		dw_printf("Telemetry: %d replies, %d GCR errors, %d bad checksums, %d missing\n",
			total.TelemetryFrames, total.TelemetryErrors, total.TelemetryChecksumErrors, total.TelemetryMissing)
	}
	if total.DiscardedFrames > 0 || total.MalformedBits > 0 {
		dw_printf("%d partial frames discarded, %d malformed bits\n", total.DiscardedFrames, total.MalformedBits)
	}

	if *errorIfLessThan != -1 && total.Good() < *errorIfLessThan {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("\n * * * TEST FAILED: number decoded is less than %d * * * \n", *errorIfLessThan)
		os.Exit(1)
	}
	if *errorIfGreaterThan != -1 && total.Good() > *errorIfGreaterThan {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("\n * * * TEST FAILED: number decoded is greater than %d * * * \n", *errorIfGreaterThan)
		os.Exit(1)
	}
}

// OpenSource opens a capture file or device in the configured format.
// The returned closer must be called when done.
func OpenSource(name string, config *Config) (TransitionReader, io.Closer, error) {
	if config.Format == "serial" {
		var s, err = OpenSerialSource(name, config.SerialBaud)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}

	var f, err = os.Open(name)
	if err != nil {
		return nil, nil, err
	}

	var r TransitionReader
	switch config.Format {
	case "vcd":
		r, err = NewVCDSource(f, config.SampleRate, fmt.Sprint(config.Channel))
	case "bin":
		r, err = NewBinarySource(f, config.Unitsize, config.Channel)
	case "packed":
		r, err = NewPackedSource(f)
	default:
		err = fmt.Errorf("%w: unknown input format %q", ErrConfiguration, config.Format)
	}
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return r, f, nil
}

func decodeOne(ctx context.Context, name string, config *Config, timing *Timing, sink Sink, logger *log.Logger) (Stats, uint64, error) {
	var r, closer, err = OpenSource(name, config)
	if err != nil {
		return Stats{}, 0, err
	}
	defer closer.Close()

	text_color_set(DW_COLOR_INFO)
	dw_printf("Decoding %s\n", name)

	var m = NewMatcher(r)
	var session, sessionErr = NewSession(timing, m, sink, WithLogger(logger.With("file", name)))
	if sessionErr != nil {
		return Stats{}, 0, sessionErr
	}

	var runErr = session.Run(ctx)

	var samples uint64
	if b, ok := r.(Bounded); ok {
		samples, _ = b.Samples()
	}

	switch {
	case errors.Is(runErr, io.EOF):
		return session.Stats(), samples, nil
	case errors.Is(runErr, context.Canceled):
		logger.Info("Interrupted", "sample", m.SampleNum())
		return session.Stats(), m.SampleNum(), nil
	default:
		return session.Stats(), samples, runErr
	}
}
