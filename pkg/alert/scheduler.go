package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-depthguard/pkg/metrics"
)

// session is the runtime record of an active alert. The scheduler holds a
// nil *session while no alert is running.
type session struct {
	id       uuid.UUID
	started  time.Time
	interval time.Duration
	beeps    int

	// playing is true between Play and its completion notification.
	playing bool

	// replay is the pending timer; replayGen identifies it so a callback
	// from a stopped timer can recognise itself as stale.
	replay    stopper
	replayGen uint64
}

// Scheduler turns proximity decisions into a repeating cue.
//
// OnNear, OnFar, PlaybackFinished and the replay timer all run under one
// mutex, and the cue is started and stopped while holding it. Once OnFar
// returns no further beep can start for the ended session.
type Scheduler struct {
	cue       Cue
	announcer Announcer
	phrase    string
	logger    *slog.Logger

	announceTimeout time.Duration
	afterFunc       timerFunc

	mu     sync.Mutex
	sess   *session
	gen    uint64
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler for cue and registers itself as the
// cue's completion handler.
func NewScheduler(cue Cue, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cue:             cue,
		logger:          slog.Default(),
		announceTimeout: 10 * time.Second,
		afterFunc: func(d time.Duration, fn func()) stopper {
			return time.AfterFunc(d, fn)
		},
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "alert")

	cue.SetFinishedHandler(s.PlaybackFinished)
	return s
}

// OnNear handles a near reading. justBecameNear triggers the announcement;
// interval becomes the pause used for the next replay.
func (s *Scheduler) OnNear(justBecameNear bool, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if justBecameNear {
		s.announceLocked()
	}

	if s.sess != nil {
		s.sess.interval = interval
		metrics.SetAlertActive(true, interval)
		return
	}

	s.sess = &session{
		id:       uuid.New(),
		started:  time.Now(),
		interval: interval,
	}
	s.logger.Info("alert session started",
		"session", s.sess.id,
		"repeat_interval", interval,
	)
	metrics.SetAlertActive(true, interval)

	if err := s.cue.Prepare(); err != nil {
		s.logger.Warn("cue prepare failed", "error", err)
	}
	s.playLocked(s.sess)
}

// OnFar ends the active session, stopping playback and cancelling any
// pending replay. It is a no-op when no session is active.
func (s *Scheduler) OnFar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked()
}

// PlaybackFinished is the cue's completion handler. While the session is
// still active it schedules the next beep after the current interval.
func (s *Scheduler) PlaybackFinished(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sess
	if sess == nil || !sess.playing {
		return
	}
	sess.playing = false
	if !ok {
		s.logger.Warn("cue playback did not complete", "session", sess.id)
		metrics.IncBeep(metrics.ResultError)
	}
	s.scheduleLocked(sess)
}

// Active reports whether an alert session is running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess != nil
}

// Session returns a snapshot of the active session, if any.
func (s *Scheduler) Session() (SessionInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil {
		return SessionInfo{}, false
	}
	return SessionInfo{
		ID:             s.sess.id.String(),
		StartedAt:      s.sess.started,
		RepeatInterval: s.sess.interval,
		Beeps:          s.sess.beeps,
	}, true
}

// Close ends any session and waits for in-flight announcements.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	s.endLocked()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *Scheduler) endLocked() {
	sess := s.sess
	if sess == nil {
		return
	}
	s.sess = nil

	if sess.replay != nil {
		sess.replay.Stop()
		sess.replay = nil
	}
	if err := s.cue.Stop(); err != nil {
		s.logger.Warn("cue stop failed", "error", err)
	}

	s.logger.Info("alert session ended",
		"session", sess.id,
		"beeps", sess.beeps,
		"duration", time.Since(sess.started).Round(time.Millisecond),
	)
	metrics.SetAlertActive(false, 0)
}

// playLocked starts one beep. A failed Play still schedules a retry so a
// transient audio fault does not silence the rest of the session.
func (s *Scheduler) playLocked(sess *session) {
	sess.beeps++
	if err := s.cue.Play(); err != nil {
		s.logger.Warn("cue play failed", "session", sess.id, "error", err)
		metrics.IncBeep(metrics.ResultError)
		s.scheduleLocked(sess)
		return
	}
	sess.playing = true
	metrics.IncBeep(metrics.ResultOK)
}

func (s *Scheduler) scheduleLocked(sess *session) {
	if sess.replay != nil {
		sess.replay.Stop()
	}
	s.gen++
	gen := s.gen
	sess.replayGen = gen
	sess.replay = s.afterFunc(sess.interval, func() {
		s.replay(sess, gen)
	})
}

func (s *Scheduler) replay(sess *session, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != sess || sess.replayGen != gen {
		return
	}
	sess.replay = nil
	s.playLocked(sess)
}

func (s *Scheduler) announceLocked() {
	if s.announcer == nil || s.phrase == "" {
		return
	}

	a := s.announcer
	phrase := s.phrase
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, s.announceTimeout)
		defer cancel()

		if err := a.Announce(ctx, phrase); err != nil {
			s.logger.Warn("announcement dropped", "text", phrase, "error", err)
			metrics.IncAnnouncement(metrics.ResultError)
			return
		}
		metrics.IncAnnouncement(metrics.ResultOK)
	}()
}
