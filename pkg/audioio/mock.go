package audioio

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// MockSink simulates playback for tests and machines without audio.
// It records every clip it is asked to play.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	// PlayFunc, if set, replaces the simulated playback.
	PlayFunc func(ctx context.Context, clip AudioChunk) error

	mu     sync.Mutex
	closed bool
	clips  []AudioChunk

	played      atomic.Int64
	interrupted atomic.Int64
	errors      atomic.Int64
}

// NewMockSink creates a mock sink.
func NewMockSink(cfg Config, logger *slog.Logger) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSink{cfg: cfg, logger: logger}
}

// Play records the clip and waits for its duration divided by MockSpeed.
func (m *MockSink) Play(ctx context.Context, clip AudioChunk) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	m.clips = append(m.clips, clip)
	fn := m.PlayFunc
	m.mu.Unlock()

	var err error
	if fn != nil {
		err = fn(ctx, clip)
	} else {
		err = m.simulate(ctx, clip)
	}

	switch {
	case err == nil:
		m.played.Add(1)
	case ctx.Err() != nil:
		m.interrupted.Add(1)
	default:
		m.errors.Add(1)
	}
	return err
}

func (m *MockSink) simulate(ctx context.Context, clip AudioChunk) error {
	if m.cfg.MockSpeed <= 0 {
		return ctx.Err()
	}
	wait := time.Duration(float64(clip.Duration()) / m.cfg.MockSpeed)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Clips returns a copy of the clips played so far.
func (m *MockSink) Clips() []AudioChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AudioChunk, len(m.clips))
	copy(out, m.clips)
	return out
}

// Config returns the audio configuration.
func (m *MockSink) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSink) Name() string {
	return "mock"
}

// Close marks the sink closed; later Play calls fail.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Stats returns playback counters.
func (m *MockSink) Stats() SinkStats {
	return SinkStats{
		ClipsPlayed:      m.played.Load(),
		ClipsInterrupted: m.interrupted.Load(),
		Errors:           m.errors.Load(),
		Backend:          "mock",
	}
}

var _ SinkWithStats = (*MockSink)(nil)
