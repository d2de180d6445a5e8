package dshot

/*------------------------------------------------------------------
 *
 * Purpose:	Test program for generating DShot captures.
 *
 * Description:	Given a list of throttle values, or a number of
 *		frames for a throttle ramp, generate a capture that
 *		the decoder, PulseView or sigrok-cli can read.
 *
 *		In bidirectional mode every frame gets an eRPM reply.
 *		Some can be spoiled on purpose to check that the
 *		decoder reports checksum and GCR errors.
 *
 *--------------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

const DEFAULT_GEN_SAMPLE_RATE = 24000000
const DEFAULT_GEN_COUNT = 100
const DEFAULT_ERPM_PERIOD_US = 1000

// Ramp from minimum throttle to full over count frames.
func throttleRamp(count int) []uint {
	var values = make([]uint, count)
	for i := range count {
		var span = 0x7ff - DSHOT_MIN_THROTTLE
		values[i] = uint(DSHOT_MIN_THROTTLE + span*i/max(count-1, 1))
	}
	return values
}

func GenMain() {
	var sampleRate = pflag.Uint64P("sample-rate", "r", DEFAULT_GEN_SAMPLE_RATE, "Sample rate of the capture, samples / second.")
	var dshotRate = pflag.IntP("dshot-rate", "B", DEFAULT_DSHOT_RATE, "DShot rate: 150, 300, 600 or 1200.")
	var bidir = pflag.Bool("bidir", true, "Bidirectional DShot: inverted line with telemetry replies.")
	var values = pflag.UintSliceP("values", "V", nil, "Comma separated throttle or command values, 0 - 2047.")
	var count = pflag.IntP("count", "n", DEFAULT_GEN_COUNT, "Number of frames of throttle ramp if no values given.")
	var telemRequest = pflag.BoolP("telemetry-request", "R", false, "Set the telemetry request bit.")
	var period = pflag.Uint32P("erpm-period", "e", DEFAULT_ERPM_PERIOD_US, "eRPM period in microseconds for telemetry replies.")
	var badChecksumEvery = pflag.Int("bad-crc-every", 0, "Spoil the command checksum of every nth frame.")
	var corruptEvery = pflag.Int("corrupt-gcr-every", 0, "Spoil a GCR group in the reply to every nth frame.")
	var turnaround = pflag.Float64("turnaround", DEFAULT_TURNAROUND_US, "Microseconds between command frame and reply.")
	var idleBits = pflag.Float64("idle", DEFAULT_IDLE_BITS, "Idle time between frames, in bit periods.")
	var outputFile = pflag.StringP("output-file", "o", "", "Write capture to this file.")
	var format = pflag.StringP("format", "f", "", "Output format: vcd, bin or packed.  Default from file name.")
	var version = pflag.BoolP("version", "v", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Generate logic capture of DShot frames.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] -o file\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Example:  dshot-gen -o x.vcd\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "    100 frames of throttle ramp, DShot150, bidirectional, 24 MHz.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Example:  dshot-gen -B 600 --bidir=false -V 0,0,1046 -o x.bin\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "    Two disarm commands then a throttle value, sigrok binary.\n")
	}

	// !!! PARSE !!!
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if *version {
		printVersion(os.Stdout, false)
		os.Exit(0)
	}

	if *outputFile == "" {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Specify output file with -o.\n")
		pflag.Usage()
		os.Exit(1)
	}

	if *format == "" {
		*format = strings.TrimPrefix(filepath.Ext(*outputFile), ".")
	}
	switch *format {
	case "vcd", "bin", "packed":
	default:
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Output format must be vcd, bin or packed, not \"%s\".\n", *format)
		os.Exit(1)
	}

	var timing, timingErr = NewTimingForRate(*sampleRate, *dshotRate, *bidir, false)
	if timingErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("%s\n", timingErr)
		os.Exit(1)
	}

	var g, genErr = NewGenerator(timing.SampleRate, timing.BaudRate, timing.Bidirectional)
	if genErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("%s\n", genErr)
		os.Exit(1)
	}
	g.TurnaroundUs = *turnaround
	g.IdleBits = *idleBits

	var frames = *values
	if len(frames) == 0 {
		if *count < 1 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Frame count must be at least 1, not %d.\n", *count)
			os.Exit(1)
		}
		frames = throttleRamp(*count)
	}

	text_color_set(DW_COLOR_INFO)
	dw_printf("DShot%d, %s, %d samples / second, %d frames.\n",
		*dshotRate, IfThenElse(*bidir, "bidirectional", "normal"), *sampleRate, len(frames))

	for i, v := range frames {
		if v > 0x7ff {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Value %d out of range 0 - 2047.\n", v)
			os.Exit(1)
		}

		var n = i + 1
		var f = GenFrame{
			Value:            uint16(v),
			TelemetryRequest: *telemRequest,
			BadChecksum:      *badChecksumEvery > 0 && n%*badChecksumEvery == 0,
		}
		if *bidir && !f.BadChecksum {
			f.Reply = &GenReply{
				PeriodUs:     *period,
				Corrupt:      *corruptEvery > 0 && n%*corruptEvery == 0,
				CorruptGroup: i % GCR_GROUPS,
			}
		}
		g.Frame(f)
	}

	var fp, err = os.Create(*outputFile)
	if err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Couldn't open %s for write: %s\n", *outputFile, err)
		os.Exit(1)
	}

	var src = g.Source()
	switch *format {
	case "vcd":
		err = WriteVCD(fp, src, *sampleRate)
	case "bin":
		err = WriteBinary(fp, src)
	case "packed":
		err = WritePacked(fp, src)
	}
	if closeErr := fp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Write to %s failed: %s\n", *outputFile, err)
		os.Exit(1)
	}

	var samples, _ = src.Samples()
	text_color_set(DW_COLOR_INFO)
	dw_printf("Wrote %d samples, %.6f seconds, to %s\n", samples, float64(samples)/float64(*sampleRate), *outputFile)
}
