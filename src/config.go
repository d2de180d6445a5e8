package dshot

/*------------------------------------------------------------------
 *
 * Purpose:   	Read configuration information from a file.
 *
 * Description:	Everything here can also be given on the command
 *		line, which overrides the file.  Example:
 *
 *			sample_rate: 24000000
 *			dshot_rate: 600
 *			bidirectional: true
 *			channel: 2
 *			log_dir: /var/log/dshot
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SampleRate    uint64 `yaml:"sample_rate"`
	DShotRate     int    `yaml:"dshot_rate"` // kbit/s
	Bidirectional bool   `yaml:"bidirectional"`
	EDTForce      bool   `yaml:"edt_force"`
	Channel       int    `yaml:"channel"`

	// How long after the end of a command frame a telemetry reply may start.
	TelemetryWaitUs uint64 `yaml:"telemetry_wait_us"`

	// Input layout: vcd, bin, packed or serial.
	Format     string `yaml:"format"`
	Unitsize   int    `yaml:"unitsize"`
	SerialBaud int    `yaml:"serial_baud"`

	// Use one or the other, not both.
	LogDir  string `yaml:"log_dir"`
	LogFile string `yaml:"log_file"`

	TimestampFormat string `yaml:"timestamp_format"`
}

var input_formats = []string{"vcd", "bin", "packed", "serial"}

func DefaultConfig() *Config {
	return &Config{
		DShotRate:       DEFAULT_DSHOT_RATE,
		Bidirectional:   true,
		EDTForce:        false,
		Channel:         0,
		TelemetryWaitUs: DEFAULT_TELEMETRY_WAIT_US,
		Format:          "vcd",
		Unitsize:        1,
	}
}

/*------------------------------------------------------------------
 *
 * Name:	LoadConfig
 *
 * Purpose:	Read a YAML file on top of the defaults.
 *
 * Returns:	Config, not yet validated.
 *
 *---------------------------------------------------------------*/

func LoadConfig(path string) (*Config, error) {
	var f, err = os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open config file: %w", err)
	}
	defer f.Close()

	return ReadConfig(f)
}

func ReadConfig(r io.Reader) (*Config, error) {
	var c = DefaultConfig()

	var dec = yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return c, nil
}

func (c *Config) Validate() error {
	if !slices.Contains(DSHOT_RATES, c.DShotRate) {
		return fmt.Errorf("%w: DShot rate %d, must be one of %v", ErrConfiguration, c.DShotRate, DSHOT_RATES)
	}
	if c.Unitsize < 1 || c.Unitsize > 2 {
		return fmt.Errorf("%w: unitsize %d, must be 1 or 2", ErrConfiguration, c.Unitsize)
	}
	if c.Channel < 0 || c.Channel >= MAX_CHANNELS*c.Unitsize {
		return fmt.Errorf("%w: channel %d out of range", ErrConfiguration, c.Channel)
	}
	if !slices.Contains(input_formats, c.Format) {
		return fmt.Errorf("%w: input format %q, must be one of %v", ErrConfiguration, c.Format, input_formats)
	}
	if c.LogDir != "" && c.LogFile != "" {
		return fmt.Errorf("%w: use log_dir or log_file, not both", ErrConfiguration)
	}
	return nil
}

// Timing for decoding.  Fails if the sample rate is still unknown.
func (c *Config) Timing() (*Timing, error) {
	return NewTiming(c.SampleRate, uint64(c.DShotRate)*1000, c.Bidirectional, c.EDTForce, c.TelemetryWaitUs)
}
