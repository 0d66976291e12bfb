// Package audioio plays short PCM clips on the local audio device.
//
// Backends:
//   - aplay (Linux/ALSA) - pipes raw PCM16 to the aplay utility
//   - mock - CI/testing without hardware
//
// The backend is chosen automatically from the platform, or explicitly via
// configuration.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto selects the best available backend for the platform.
	BackendAuto Backend = "auto"
	// BackendALSA pipes audio to aplay.
	BackendALSA Backend = "alsa"
	// BackendMock discards audio after simulating playback time.
	BackendMock Backend = "mock"
)

// Config holds audio output configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "auto"
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate of the output device in Hz.
	// Default: 44100
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels of the output device.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// Device is the platform-specific output device.
	// Examples for ALSA: "default", "plughw:1,0"
	Device string `yaml:"device" json:"device"`

	// MockSpeed divides simulated playback time for the mock backend.
	// 1 plays in real time; 0 completes immediately.
	MockSpeed float64 `yaml:"mock_speed" json:"mock_speed"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendAuto,
		SampleRate: 44100,
		Channels:   1,
		Device:     "default",
		MockSpeed:  1,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendALSA, BackendMock:
	default:
		return fmt.Errorf("unknown audio backend %q", c.Backend)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}
	if c.MockSpeed < 0 {
		return fmt.Errorf("mock_speed must not be negative, got %v", c.MockSpeed)
	}
	return nil
}

// SamplesFor returns the per-channel sample count for d at the configured rate.
func (c *Config) SamplesFor(d time.Duration) int {
	return int(float64(c.SampleRate) * d.Seconds())
}
