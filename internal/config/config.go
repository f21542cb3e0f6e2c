// Package config assembles the command line configuration from defaults, environment variables,
// an optional YAML file and flags, in increasing order of precedence.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-upscalin/pkg/sink"
	"github.com/askiada/go-upscalin/pkg/source"
	"github.com/askiada/go-upscalin/pkg/transform"
)

const (
	EnvWorkers = "UPSCALIN_WORKERS"
	EnvWindow  = "UPSCALIN_WINDOW"
	EnvFFmpeg  = "UPSCALIN_FFMPEG"
	EnvFFprobe = "UPSCALIN_FFPROBE"

	DefaultWorkers          = 5
	DefaultProgressInterval = 100 * time.Millisecond
)

var (
	ErrInvalid      = errors.New("invalid configuration")
	ErrNoInput      = errors.New("an input is required")
	ErrNoTransforms = errors.New("at least one upscaler is required")
)

// Config is everything the command needs to run.
type Config struct {
	Input            string
	Output           string
	Workers          int
	Window           int
	Upscalers        []string
	ChainFile        string
	Graph            string
	ProgressInterval time.Duration
	FFmpeg           string
	FFprobe          string
	LogLevel         logger.Level
	Encoder          sink.EncoderConfig

	chain []transform.Spec
}

// File is the YAML document read from --chain.
type File struct {
	Workers int                 `yaml:"workers"`
	Window  int                 `yaml:"window"`
	Chain   []transform.Spec    `yaml:"chain"`
	Encoder *sink.EncoderConfig `yaml:"encoder"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Workers:          DefaultWorkers,
		ProgressInterval: DefaultProgressInterval,
		FFmpeg:           source.DefaultFFmpeg,
		FFprobe:          source.DefaultFFprobe,
		LogLevel:         logger.LevelInfo,
		Encoder:          sink.DefaultEncoder(),
	}
}

// ApplyEnv overrides the defaults with the UPSCALIN_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for name, dst := range map[string]*int{EnvWorkers: &c.Workers, EnvWindow: &c.Window} {
		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}

		parsed, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(ErrInvalid, "%s=%q is not an integer", name, value)
		}

		*dst = parsed
	}

	if value, ok := lookup(EnvFFmpeg); ok && value != "" {
		c.FFmpeg = value
	}

	if value, ok := lookup(EnvFFprobe); ok && value != "" {
		c.FFprobe = value
	}

	return nil
}

// RegisterFlags binds the flags to c. Current values become the flag defaults.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Input, "input", "i", c.Input, "input file (image, video, GIF) or directory")
	fs.StringVarP(&c.Output, "output", "o", c.Output, "output file or directory")
	fs.IntVarP(&c.Workers, "thread", "t", c.Workers, "number of frames upscaled at the same time")
	fs.IntVar(&c.Window, "window", c.Window, "frames admitted ahead of the oldest unwritten one (0: twice --thread)")
	fs.StringArrayVarP(&c.Upscalers, "upscaler", "u", c.Upscalers, "upscaler stage kind[:key=value,...], repeat to chain")
	fs.StringVar(&c.ChainFile, "chain", c.ChainFile, "YAML file with the upscaler chain and encoder settings")
	fs.StringVar(&c.Graph, "graph", c.Graph, "write the pipeline graph of every video to this DOT file")
	fs.DurationVar(&c.ProgressInterval, "progress-interval", c.ProgressInterval, "minimum time between progress logs")
	fs.StringVar(&c.FFmpeg, "ffmpeg", c.FFmpeg, "ffmpeg executable")
	fs.StringVar(&c.FFprobe, "ffprobe", c.FFprobe, "ffprobe executable")
	fs.Var(&c.LogLevel, "log-level", "log level")
}

// ApplyFile reads ChainFile, if set. Its workers and window apply only when the matching flag
// was not given.
func (c *Config) ApplyFile(fs *pflag.FlagSet) error {
	if c.ChainFile == "" {
		return nil
	}

	data, err := os.ReadFile(c.ChainFile)
	if err != nil {
		return errors.Wrapf(err, "unable to read %s", c.ChainFile)
	}

	file := File{Encoder: &c.Encoder}

	err = yaml.Unmarshal(data, &file)
	if err != nil {
		return errors.Wrapf(ErrInvalid, "%s: %v", c.ChainFile, err)
	}

	if file.Workers != 0 && !fs.Changed("thread") {
		c.Workers = file.Workers
	}

	if file.Window != 0 && !fs.Changed("window") {
		c.Window = file.Window
	}

	c.chain = file.Chain

	return nil
}

// Specs returns the chain file stages followed by the --upscaler stages.
func (c Config) Specs() ([]transform.Spec, error) {
	specs := append([]transform.Spec(nil), c.chain...)

	for _, raw := range c.Upscalers {
		spec, err := transform.ParseSpec(raw)
		if err != nil {
			return nil, err
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

// Validate checks the values that do not need the filesystem.
func (c Config) Validate() error {
	switch {
	case c.Input == "":
		return ErrNoInput
	case c.Workers < 1:
		return errors.Wrapf(ErrInvalid, "--thread must be positive, got %d", c.Workers)
	case c.Window != 0 && c.Window < c.Workers:
		return errors.Wrapf(ErrInvalid, "--window %d is smaller than --thread %d", c.Window, c.Workers)
	case c.ProgressInterval < 0:
		return errors.Wrapf(ErrInvalid, "--progress-interval must not be negative, got %s", c.ProgressInterval)
	case len(c.chain) == 0 && len(c.Upscalers) == 0:
		return ErrNoTransforms
	}

	return nil
}

// Load builds the configuration from args (without the program name) and the environment.
// A single positional argument is used as the input when --input is not given.
func Load(args []string, lookup func(string) (string, bool)) (Config, *pflag.FlagSet, error) {
	cfg := Default()

	err := cfg.ApplyEnv(lookup)
	if err != nil {
		return cfg, nil, err
	}

	fs := pflag.NewFlagSet("upscalin", pflag.ContinueOnError)
	cfg.RegisterFlags(fs)

	err = fs.Parse(args)
	if err != nil {
		return cfg, fs, errors.Wrap(err, "unable to parse flags")
	}

	if cfg.Input == "" && fs.NArg() == 1 {
		cfg.Input = fs.Arg(0)
	}

	err = cfg.ApplyFile(fs)
	if err != nil {
		return cfg, fs, err
	}

	return cfg, fs, cfg.Validate()
}
