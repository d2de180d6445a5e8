package dshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DefaultConfig(t *testing.T) {
	var c = DefaultConfig()
	assert.Equal(t, 150, c.DShotRate)
	assert.True(t, c.Bidirectional)
	assert.False(t, c.EDTForce)
	assert.Equal(t, 0, c.Channel)
	assert.Equal(t, uint64(100), c.TelemetryWaitUs)
	require.NoError(t, c.Validate())

	// No sample rate yet.
	var _, err = c.Timing()
	assert.ErrorIs(t, err, ErrConfiguration)
}

func Test_ReadConfig(t *testing.T) {
	var c, err = ReadConfig(strings.NewReader(`
sample_rate: 24000000
dshot_rate: 600
bidirectional: false
channel: 3
log_dir: /tmp/dshot
`))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, uint64(24000000), c.SampleRate)
	assert.Equal(t, 600, c.DShotRate)
	assert.False(t, c.Bidirectional)
	assert.Equal(t, 3, c.Channel)
	assert.Equal(t, "/tmp/dshot", c.LogDir)
	assert.Equal(t, "vcd", c.Format) // Default kept.

	var timing, timingErr = c.Timing()
	require.NoError(t, timingErr)
	assert.Equal(t, uint64(40), timing.BitPeriodSamples)
}

func Test_ReadConfigEmpty(t *testing.T) {
	var c, err = ReadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func Test_ReadConfigUnknownField(t *testing.T) {
	var _, err = ReadConfig(strings.NewReader("sample_rat: 1000\n"))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func Test_ConfigValidate(t *testing.T) {
	var c = DefaultConfig()
	c.DShotRate = 400
	assert.ErrorIs(t, c.Validate(), ErrConfiguration)

	c = DefaultConfig()
	c.Channel = 8
	assert.ErrorIs(t, c.Validate(), ErrConfiguration)

	c.Unitsize = 2
	assert.NoError(t, c.Validate())

	for _, unitsize := range []int{0, 3, -1} {
		c = DefaultConfig()
		c.Unitsize = unitsize
		assert.ErrorIs(t, c.Validate(), ErrConfiguration, "unitsize %d", unitsize)
	}

	c = DefaultConfig()
	c.Format = "wav"
	assert.ErrorIs(t, c.Validate(), ErrConfiguration)

	c = DefaultConfig()
	c.LogDir = "a"
	c.LogFile = "b"
	assert.ErrorIs(t, c.Validate(), ErrConfiguration)
}

func Test_LoadConfig(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "dshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_rate: 12000000\nedt_force: true\n"), 0644))

	var c, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(12000000), c.SampleRate)
	assert.True(t, c.EDTForce)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
