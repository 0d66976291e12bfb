// Package config loads depthguard's configuration: built-in defaults, then
// an optional YAML file, then environment variables, then command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-depthguard/internal/log"
	"github.com/teslashibe/go-depthguard/pkg/audioio"
	"github.com/teslashibe/go-depthguard/pkg/cue"
	"github.com/teslashibe/go-depthguard/pkg/depth"
	"github.com/teslashibe/go-depthguard/pkg/detector"
	"github.com/teslashibe/go-depthguard/pkg/proximity"
	"github.com/teslashibe/go-depthguard/pkg/tts"
)

// Environment variables read by ApplyEnv.
const (
	EnvPort     = "DEPTHGUARD_PORT"
	EnvLogLevel = "DEPTHGUARD_LOG_LEVEL"
	EnvTTSKey   = "GOOGLE_TTS_API_KEY"
)

// Speech providers.
const (
	SpeechGoogle = "google"
	SpeechLog    = "log"
	SpeechNone   = "none"
)

// Config is the whole application configuration.
type Config struct {
	Sensor   SensorConfig     `yaml:"sensor"`
	Region   depth.Region     `yaml:"region"`
	Alert    proximity.Config `yaml:"alert"`
	Audio    audioio.Config   `yaml:"audio"`
	Cue      cue.Config       `yaml:"cue"`
	Speech   SpeechConfig     `yaml:"speech"`
	Web      WebConfig        `yaml:"web"`
	Detector DetectorConfig   `yaml:"detector"`
	Logging  LoggingConfig    `yaml:"logging"`
}

// SensorConfig describes the expected depth frame size.
type SensorConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// SpeechConfig selects and tunes the announcement voice.
type SpeechConfig struct {
	Provider     string        `yaml:"provider"`
	Language     string        `yaml:"language"`
	Voice        string        `yaml:"voice"`
	SpeakingRate float64       `yaml:"speaking_rate"`
	Pitch        float64       `yaml:"pitch"`
	SampleRate   int           `yaml:"sample_rate"`
	APIKey       string        `yaml:"api_key"`
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"`

	// PicturePhrase is spoken by the take-picture action; empty is silent.
	PicturePhrase string `yaml:"picture_phrase"`
}

// WebConfig configures the status server.
type WebConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

// DetectorConfig tunes the frame pipeline.
type DetectorConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration that runs on the stock 256x192
// sensor with a synthesized beep and spoken announcements.
func DefaultConfig() Config {
	speech := tts.DefaultConfig()
	return Config{
		Sensor: SensorConfig{
			Width:  depth.DefaultWidth,
			Height: depth.DefaultHeight,
		},
		Region: depth.DefaultRegion(),
		Alert:  proximity.DefaultConfig(),
		Audio:  audioio.DefaultConfig(),
		Cue:    cue.DefaultConfig(),
		Speech: SpeechConfig{
			Provider:     SpeechGoogle,
			Language:     speech.Language,
			SpeakingRate: speech.SpeakingRate,
			Pitch:        speech.Pitch,
			SampleRate:   speech.SampleRate,
			Timeout:      speech.Timeout,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Detector: DetectorConfig{
			QueueSize: detector.DefaultQueueSize,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads a YAML file over the defaults.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	cfg.Cue.File = ExpandPath(cfg.Cue.File)
	return cfg, nil
}

// ApplyEnv applies environment overrides. getenv is os.Getenv in
// production.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Web.Port = port
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := getenv(EnvTTSKey); v != "" {
		c.Speech.APIKey = v
	}
	return nil
}

// FlagOverrides carries command-line values. Nil pointers are ignored.
type FlagOverrides struct {
	Port           *int
	LogLevel       *string
	AudioBackend   *string
	SpeechProvider *string
	CueFile        *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Port != nil {
		cfg.Web.Port = *o.Port
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.AudioBackend != nil {
		cfg.Audio.Backend = audioio.Backend(*o.AudioBackend)
	}
	if o.SpeechProvider != nil {
		cfg.Speech.Provider = *o.SpeechProvider
	}
	if o.CueFile != nil {
		cfg.Cue.File = ExpandPath(*o.CueFile)
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Sensor.Width <= 0 || c.Sensor.Height <= 0 {
		errs = append(errs, fmt.Errorf("sensor: width and height must be positive, got %dx%d",
			c.Sensor.Width, c.Sensor.Height))
	} else if err := c.Region.Validate(c.Sensor.Width, c.Sensor.Height); err != nil {
		errs = append(errs, fmt.Errorf("region: %w", err))
	}

	if err := c.Alert.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("alert: %w", err))
	}
	if err := c.Audio.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}
	if c.Cue.FrequencyHz <= 0 || c.Cue.Duration <= 0 {
		errs = append(errs, errors.New("cue: frequency_hz and duration must be positive"))
	}
	if c.Cue.Volume < 0 || c.Cue.Volume > 1 {
		errs = append(errs, fmt.Errorf("cue: volume must be in [0, 1], got %v", c.Cue.Volume))
	}

	switch c.Speech.Provider {
	case SpeechGoogle:
		tc := c.Speech.TTSConfig()
		if err := tc.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("speech: %w", err))
		}
	case SpeechLog, SpeechNone:
	default:
		errs = append(errs, fmt.Errorf("speech: provider must be %q, %q or %q, got %q",
			SpeechGoogle, SpeechLog, SpeechNone, c.Speech.Provider))
	}

	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		errs = append(errs, fmt.Errorf("web: port must be between 1 and 65535, got %d", c.Web.Port))
	}
	if c.Detector.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("detector: queue_size must be positive, got %d", c.Detector.QueueSize))
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging: format must be text or json, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// TTSConfig converts the speech section into provider options.
func (s SpeechConfig) TTSConfig() *tts.Config {
	cfg := tts.DefaultConfig()
	cfg.Apply(s.TTSOptions()...)
	return cfg
}

// TTSOptions returns the provider options for the speech section.
func (s SpeechConfig) TTSOptions() []tts.Option {
	opts := []tts.Option{
		tts.WithLanguage(s.Language),
		tts.WithSpeakingRate(s.SpeakingRate),
		tts.WithPitch(s.Pitch),
		tts.WithSampleRate(s.SampleRate),
	}
	if s.APIKey != "" {
		opts = append(opts, tts.WithAPIKey(s.APIKey))
	}
	if s.Voice != "" {
		opts = append(opts, tts.WithVoice(s.Voice))
	}
	if s.Endpoint != "" {
		opts = append(opts, tts.WithEndpoint(s.Endpoint))
	}
	if s.Timeout > 0 {
		opts = append(opts, tts.WithTimeout(s.Timeout))
	}
	return opts
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
