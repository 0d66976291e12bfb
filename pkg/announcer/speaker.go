// Package announcer speaks short phrases through a TTS provider and an
// audio sink.
package announcer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-depthguard/pkg/audioio"
	"github.com/teslashibe/go-depthguard/pkg/tts"
)

// ErrInterrupted is returned by Announce when a newer announcement
// replaced the one in progress.
var ErrInterrupted = errors.New("announcer: interrupted by newer announcement")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("announcer: closed")

// Speaker synthesizes phrases once, caches the PCM and plays it on a sink.
// A new announcement interrupts the one currently playing.
type Speaker struct {
	provider tts.Provider
	sink     audioio.Sink
	logger   *slog.Logger

	mu      sync.Mutex
	cache   map[string]audioio.AudioChunk
	cancel  context.CancelFunc
	current uint64
	closed  bool
}

// NewSpeaker creates a speaker. A nil logger uses slog.Default().
func NewSpeaker(provider tts.Provider, sink audioio.Sink, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		provider: provider,
		sink:     sink,
		logger:   logger.With("component", "announcer"),
		cache:    make(map[string]audioio.AudioChunk),
	}
}

// Warm synthesizes phrases ahead of time so the first announcement does not
// wait on the network.
func (s *Speaker) Warm(ctx context.Context, phrases ...string) error {
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if _, err := s.clip(ctx, p); err != nil {
			return fmt.Errorf("warm %q: %w", p, err)
		}
	}
	return nil
}

// Announce speaks text and blocks until playback ends, ctx is done or a
// newer announcement takes over.
func (s *Speaker) Announce(ctx context.Context, text string) error {
	clip, err := s.clip(ctx, text)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	playCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.current++
	id := s.current
	s.mu.Unlock()

	start := time.Now()
	err = s.sink.Play(playCtx, clip)

	s.mu.Lock()
	superseded := s.current != id
	if !superseded {
		s.cancel = nil
	}
	s.mu.Unlock()
	cancel()

	if err != nil {
		if superseded && ctx.Err() == nil {
			return ErrInterrupted
		}
		return fmt.Errorf("play announcement: %w", err)
	}

	s.logger.Debug("announced", "text", text, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// Close interrupts any playback and releases the provider.
func (s *Speaker) Close() error {
	s.mu.Lock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	return s.provider.Close()
}

func (s *Speaker) clip(ctx context.Context, text string) (audioio.AudioChunk, error) {
	s.mu.Lock()
	c, ok := s.cache[text]
	s.mu.Unlock()
	if ok {
		return c, nil
	}

	result, err := s.provider.Synthesize(ctx, text)
	if err != nil {
		return audioio.AudioChunk{}, fmt.Errorf("synthesize: %w", err)
	}
	if len(result.Audio) == 0 {
		return audioio.AudioChunk{}, tts.ErrEmptyAudio
	}

	out := s.sink.Config()
	c = audioio.Convert(
		audioio.ChunkFromBytes(result.Audio, result.Format.SampleRate, result.Format.Channels),
		out.SampleRate, out.Channels,
	)

	s.mu.Lock()
	s.cache[text] = c
	s.mu.Unlock()

	s.logger.Info("phrase synthesized",
		"text", text,
		"latency_ms", result.LatencyMs,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return c, nil
}
