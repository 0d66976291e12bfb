package tts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-depthguard/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, "Object 3 feet ahead")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio data")
		}
		if result.CharCount != 19 {
			t.Errorf("expected 19 chars, got %d", result.CharCount)
		}
		if result.Format.SampleRate != 24000 {
			t.Errorf("expected 24000 sample rate, got %d", result.Format.SampleRate)
		}
		if d := result.Duration - 380*time.Millisecond; d < -time.Millisecond || d > time.Millisecond {
			t.Errorf("expected ~380ms of audio, got %v", result.Duration)
		}
	})

	t.Run("Health returns nil", func(t *testing.T) {
		if err := mock.Health(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Calls are tracked", func(t *testing.T) {
		if len(mock.Calls()) != 2 {
			t.Errorf("expected 2 calls, got %d", len(mock.Calls()))
		}
		if mock.CallCount("Synthesize") != 1 {
			t.Errorf("expected 1 Synthesize call, got %d", mock.CallCount("Synthesize"))
		}
	})
}

func TestMockWithError(t *testing.T) {
	testErr := errors.New("speech unavailable")
	mock := tts.WithError(testErr)
	ctx := context.Background()

	if _, err := mock.Synthesize(ctx, "Hello"); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
	if err := mock.Health(ctx); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
}

func TestFunctionalOptions(t *testing.T) {
	cfg := tts.DefaultConfig()
	cfg.Apply(
		tts.WithAPIKey("key"),
		tts.WithLanguage("en-GB"),
		tts.WithVoice("en-GB-Standard-A"),
		tts.WithSpeakingRate(1.5),
		tts.WithPitch(-2),
		tts.WithSampleRate(16000),
		tts.WithTimeout(5*time.Second),
	)

	if cfg.APIKey != "key" {
		t.Errorf("expected api key, got %q", cfg.APIKey)
	}
	if cfg.Language != "en-GB" || cfg.VoiceID != "en-GB-Standard-A" {
		t.Errorf("unexpected voice %s/%s", cfg.Language, cfg.VoiceID)
	}
	if cfg.SpeakingRate != 1.5 || cfg.Pitch != -2 {
		t.Errorf("unexpected rate/pitch %v/%v", cfg.SpeakingRate, cfg.Pitch)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("expected 16000 Hz, got %d", cfg.SampleRate)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Timeout)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		opt     tts.Option
		wantErr error
	}{
		{"defaults", func(*tts.Config) {}, nil},
		{"no language", tts.WithLanguage(""), tts.ErrNoLanguage},
		{"rate too slow", tts.WithSpeakingRate(0.1), tts.ErrInvalidSpeakingRate},
		{"rate too fast", tts.WithSpeakingRate(5), tts.ErrInvalidSpeakingRate},
		{"pitch too high", tts.WithPitch(25), tts.ErrInvalidPitch},
		{"zero sample rate", tts.WithSampleRate(0), tts.ErrInvalidSampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tts.DefaultConfig()
			cfg.Apply(tt.opt)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		code         int
		unauthorized bool
		retryable    bool
	}{
		{400, false, false},
		{401, true, false},
		{403, true, false},
		{429, false, true},
		{500, false, true},
		{503, false, true},
	}

	for _, tt := range tests {
		err := &tts.APIError{StatusCode: tt.code, Provider: "google"}
		if err.IsUnauthorized() != tt.unauthorized {
			t.Errorf("%d: IsUnauthorized = %v", tt.code, err.IsUnauthorized())
		}
		if err.IsRetryable() != tt.retryable {
			t.Errorf("%d: IsRetryable = %v", tt.code, err.IsRetryable())
		}
	}
}

func TestProviderError(t *testing.T) {
	inner := errors.New("boom")
	err := tts.WrapError("google", inner)

	if !errors.Is(err, inner) {
		t.Error("expected wrapped error to unwrap")
	}
	var perr *tts.ProviderError
	if !errors.As(err, &perr) || perr.Provider != "google" {
		t.Errorf("expected ProviderError for google, got %v", err)
	}
	if tts.WrapError("google", nil) != nil {
		t.Error("expected nil for nil error")
	}
}
