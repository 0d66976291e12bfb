// Package cue plays the proximity beep on an audio sink.
//
// Player implements the alert package's audio-output capability: Play
// starts the clip without blocking, completion is reported through the
// finished handler, and Stop cuts playback off silently.
package cue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-depthguard/pkg/audioio"
)

// Config describes the beep sound.
type Config struct {
	// File is an optional WAV asset. When empty or unreadable a tone is
	// synthesized instead.
	File string `yaml:"file" json:"file"`

	FrequencyHz float64       `yaml:"frequency_hz" json:"frequency_hz"`
	Duration    time.Duration `yaml:"duration" json:"duration"`
	Volume      float64       `yaml:"volume" json:"volume"`
}

// DefaultConfig returns a short 880 Hz beep.
func DefaultConfig() Config {
	return Config{
		FrequencyHz: 880,
		Duration:    120 * time.Millisecond,
		Volume:      0.6,
	}
}

// Player plays one clip on a sink, one playback at a time.
type Player struct {
	sink   audioio.Sink
	logger *slog.Logger

	mu       sync.Mutex
	clip     audioio.AudioChunk
	prepared bool
	gen      uint64
	cancel   context.CancelFunc
	finished func(ok bool)
}

// NewPlayer creates a player for clip.
func NewPlayer(sink audioio.Sink, clip audioio.AudioChunk, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		sink:   sink,
		clip:   clip,
		logger: logger.With("component", "cue"),
	}
}

// Load builds a player from cfg. A missing or broken asset is reported and
// replaced by a synthesized tone so alerts stay audible.
func Load(cfg Config, sink audioio.Sink, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	out := sink.Config()

	if cfg.File != "" {
		clip, err := LoadWAV(cfg.File)
		if err == nil {
			return NewPlayer(sink, clip, logger)
		}
		logger.Error("cue asset failed to load, using synthesized tone",
			"file", cfg.File,
			"error", err,
		)
	}

	tone := audioio.Tone(cfg.FrequencyHz, cfg.Duration, cfg.Volume, out.SampleRate, out.Channels)
	return NewPlayer(sink, tone, logger)
}

// Prepare converts the clip to the sink's format ahead of the first beep.
func (p *Player) Prepare() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prepareLocked()
}

func (p *Player) prepareLocked() error {
	if p.prepared {
		return nil
	}
	if len(p.clip.Samples) == 0 {
		return errors.New("cue: empty clip")
	}
	out := p.sink.Config()
	if p.clip.SampleRate != out.SampleRate || p.clip.Channels != out.Channels {
		p.clip = audioio.Convert(p.clip, out.SampleRate, out.Channels)
	}
	p.prepared = true
	return nil
}

// Play starts the clip. A playback already in progress is restarted.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.prepareLocked(); err != nil {
		return err
	}
	if p.cancel != nil {
		p.cancel()
	}

	p.gen++
	gen := p.gen
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	clip := p.clip

	go p.run(ctx, gen, clip)
	return nil
}

func (p *Player) run(ctx context.Context, gen uint64, clip audioio.AudioChunk) {
	err := p.sink.Play(ctx, clip)

	p.mu.Lock()
	if p.gen != gen || ctx.Err() != nil {
		// Stopped or restarted: the interruption is not a completion.
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.cancel = nil
	fn := p.finished
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("cue playback failed", "error", err)
	}
	if fn != nil {
		fn(err == nil)
	}
}

// Stop cuts off the current playback, if any. It does not wait for the
// sink to return.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	return nil
}

// SetFinishedHandler registers the completion callback.
func (p *Player) SetFinishedHandler(fn func(ok bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = fn
}

// Clip returns the clip as it will be played.
func (p *Player) Clip() audioio.AudioChunk {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clip
}
