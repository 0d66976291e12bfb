// Package tts provides a provider-neutral interface for speech synthesis.
//
// Providers return complete PCM16 clips for short phrases such as
// obstacle announcements. The Google Cloud provider is used in production
// and Mock serves tests.
//
// Example usage:
//
//	provider, _ := tts.NewGoogle(ctx,
//	    tts.WithAPIKey(os.Getenv("GOOGLE_TTS_API_KEY")),
//	    tts.WithLanguage("en-US"),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Object 3 feet ahead")
//	// result.Audio contains PCM16 samples at result.Format.SampleRate
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to a complete PCM16 audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete synthesis result.
type AudioResult struct {
	// Audio is little-endian PCM16.
	Audio []byte

	// Format describes the sample rate and channel count.
	Format AudioFormat

	// Duration is the playback length.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request round-trip time in milliseconds.
	LatencyMs int64
}

// AudioFormat describes PCM16 audio.
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// PCMDuration returns the playback length of PCM16 data in format f.
func PCMDuration(data []byte, f AudioFormat) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := len(data) / 2 / f.Channels
	return time.Duration(float64(frames) / float64(f.SampleRate) * float64(time.Second))
}
