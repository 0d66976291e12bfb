package tts

import (
	"log/slog"
	"time"
)

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Credentials. An empty APIKey means application default credentials.
	APIKey   string
	Endpoint string

	// Voice
	Language string
	VoiceID  string

	// SpeakingRate is relative speed: 1.0 normal, 0.25..4.0.
	SpeakingRate float64

	// Pitch in semitones, -20..20.
	Pitch float64

	// SampleRate of the returned PCM16 audio.
	SampleRate int

	Timeout time.Duration

	Logger *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEndpoint overrides the API endpoint.
func WithEndpoint(url string) Option {
	return func(c *Config) {
		c.Endpoint = url
	}
}

// WithLanguage sets the BCP-47 language code.
func WithLanguage(code string) Option {
	return func(c *Config) {
		c.Language = code
	}
}

// WithVoice selects a named voice.
func WithVoice(voiceID string) Option {
	return func(c *Config) {
		c.VoiceID = voiceID
	}
}

// WithSpeakingRate sets the relative speaking speed.
func WithSpeakingRate(rate float64) Option {
	return func(c *Config) {
		c.SpeakingRate = rate
	}
}

// WithPitch sets the pitch offset in semitones.
func WithPitch(semitones float64) Option {
	return func(c *Config) {
		c.Pitch = semitones
	}
}

// WithSampleRate sets the output sample rate.
func WithSampleRate(hz int) Option {
	return func(c *Config) {
		c.SampleRate = hz
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns defaults tuned for short, brisk alerts.
func DefaultConfig() *Config {
	return &Config{
		Language:     "en-US",
		SpeakingRate: 1.2,
		Pitch:        0,
		SampleRate:   24000,
		Timeout:      10 * time.Second,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the voice parameters.
func (c *Config) Validate() error {
	if c.Language == "" {
		return ErrNoLanguage
	}
	if c.SpeakingRate < 0.25 || c.SpeakingRate > 4.0 {
		return ErrInvalidSpeakingRate
	}
	if c.Pitch < -20 || c.Pitch > 20 {
		return ErrInvalidPitch
	}
	if c.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	return nil
}
