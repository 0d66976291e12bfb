// Package alert drives the audible proximity alert.
//
// A Scheduler owns at most one alert session. While the session is active
// the cue is replayed after each completed playback, waiting the most
// recent repeat interval between beeps. The session ends on the next far
// reading. Entering the near state also triggers a one-shot spoken
// announcement.
package alert

import (
	"context"
	"time"
)

// Cue is the audio-output capability used for the beep.
//
// Play must not block on playback: it starts the sound and returns. When a
// playback completes on its own, the cue calls the handler registered with
// SetFinishedHandler, from its own goroutine. Stop halts playback
// immediately and suppresses the completion notification of the
// interrupted playback.
type Cue interface {
	Prepare() error
	Play() error
	Stop() error
	SetFinishedHandler(fn func(ok bool))
}

// Announcer speaks short phrases. Calls are fire-and-forget from the
// scheduler's point of view; errors are only logged.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// SessionInfo is a snapshot of the active alert session.
type SessionInfo struct {
	ID             string        `json:"id"`
	StartedAt      time.Time     `json:"started_at"`
	RepeatInterval time.Duration `json:"repeat_interval"`
	Beeps          int           `json:"beeps"`
}
