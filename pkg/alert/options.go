package alert

import (
	"log/slog"
	"time"
)

// timerFunc schedules fn after d. It matches time.AfterFunc so tests can
// substitute a manual clock.
type timerFunc func(d time.Duration, fn func()) stopper

type stopper interface {
	Stop() bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAnnouncer sets the speech capability and the phrase spoken when an
// obstacle becomes near. An empty phrase disables announcements.
func WithAnnouncer(a Announcer, phrase string) Option {
	return func(s *Scheduler) {
		s.announcer = a
		s.phrase = phrase
	}
}

// WithAnnounceTimeout bounds each announcement request.
func WithAnnounceTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.announceTimeout = d
		}
	}
}

func withTimerFunc(fn timerFunc) Option {
	return func(s *Scheduler) {
		s.afterFunc = fn
	}
}
