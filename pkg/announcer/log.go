package announcer

import (
	"context"
	"log/slog"
)

// Log is an Announcer that only writes the phrase to the log. It stands in
// when no speech provider is configured.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log-only announcer.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "announcer")}
}

// Announce logs text.
func (l *Log) Announce(ctx context.Context, text string) error {
	l.logger.Info("announce", "text", text)
	return nil
}
