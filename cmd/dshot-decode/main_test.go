package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	dshot "github.com/doismellburning/dshotdec/src"
)

func writeCapture(t *testing.T, values ...uint16) string {
	t.Helper()

	var g, err = dshot.NewGenerator(24000000, 300000, true)
	require.NoError(t, err)
	for _, v := range values {
		g.Frame(dshot.GenFrame{Value: v, Reply: &dshot.GenReply{PeriodUs: 2000}})
	}

	var file = filepath.Join(t.TempDir(), "capture.vcd")
	var fp, createErr = os.Create(file)
	require.NoError(t, createErr)
	require.NoError(t, dshot.WriteVCD(fp, g.Source(), 24000000))
	require.NoError(t, fp.Close())

	return file
}

func Test_DecodeVCD(t *testing.T) {
	var file = writeCapture(t, 0, 1046, 2047)

	os.Args = []string{"dshot-decode", "-r", "24000000", "-B", "300", "-L", "3", "-G", "3", file}
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)

	dshot.AssertOutputContains(t, main,
		"Command 0000 T0",
		"Throttle 1046 T0",
		"Throttle 2047 T0",
		"eRPM period 2000 us 30000 eRPM",
		"3 good command frames")
}
