package audioio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
)

// ALSASink plays clips by piping raw PCM16 into aplay. Each Play runs its
// own aplay process, so overlapping clips (beep plus speech) mix on dmix
// devices.
type ALSASink struct {
	cfg    Config
	logger *slog.Logger
	binary string

	mu     sync.Mutex
	closed bool
	procs  map[*exec.Cmd]struct{}

	played      atomic.Int64
	interrupted atomic.Int64
	errors      atomic.Int64
}

func newALSASink(cfg Config, logger *slog.Logger) (*ALSASink, error) {
	binary, err := exec.LookPath("aplay")
	if err != nil {
		return nil, fmt.Errorf("aplay not found: %w", err)
	}
	if cfg.Device == "" {
		cfg.Device = "default"
	}

	logger.Info("ALSA sink created",
		"device", cfg.Device,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
	)

	return &ALSASink{
		cfg:    cfg,
		logger: logger,
		binary: binary,
		procs:  make(map[*exec.Cmd]struct{}),
	}, nil
}

// Play pipes the clip to a fresh aplay process and waits for it to exit.
func (s *ALSASink) Play(ctx context.Context, clip AudioChunk) error {
	if clip.SampleRate != s.cfg.SampleRate || clip.Channels != s.cfg.Channels {
		clip = Convert(clip, s.cfg.SampleRate, s.cfg.Channels)
	}

	cmd := exec.CommandContext(ctx, s.binary,
		"-q",
		"-t", "raw",
		"-f", "S16_LE",
		"-r", strconv.Itoa(s.cfg.SampleRate),
		"-c", strconv.Itoa(s.cfg.Channels),
		"-D", s.cfg.Device,
	)
	cmd.Stdin = bytes.NewReader(clip.Bytes())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return io.ErrClosedPipe
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		s.errors.Add(1)
		return fmt.Errorf("start aplay: %w", err)
	}
	s.procs[cmd] = struct{}{}
	s.mu.Unlock()

	err := cmd.Wait()

	s.mu.Lock()
	delete(s.procs, cmd)
	s.mu.Unlock()

	if ctx.Err() != nil {
		s.interrupted.Add(1)
		return ctx.Err()
	}
	if err != nil {
		s.errors.Add(1)
		return fmt.Errorf("aplay: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	s.played.Add(1)
	return nil
}

// Config returns the output configuration.
func (s *ALSASink) Config() Config {
	return s.cfg
}

// Name returns "alsa".
func (s *ALSASink) Name() string {
	return "alsa"
}

// Close kills any running playback.
func (s *ALSASink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for cmd := range s.procs {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}
	return nil
}

// Stats returns playback counters.
func (s *ALSASink) Stats() SinkStats {
	return SinkStats{
		ClipsPlayed:      s.played.Load(),
		ClipsInterrupted: s.interrupted.Load(),
		Errors:           s.errors.Load(),
		Backend:          "alsa",
	}
}

var _ SinkWithStats = (*ALSASink)(nil)
