package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-depthguard/pkg/depth"
	"github.com/teslashibe/go-depthguard/pkg/proximity"
)

// fakeCue records calls. Completion is driven by the test.
type fakeCue struct {
	mu       sync.Mutex
	prepares int
	plays    int
	stops    int
	playErr  error
	finished func(ok bool)
}

func (c *fakeCue) Prepare() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepares++
	return nil
}

func (c *fakeCue) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plays++
	return c.playErr
}

func (c *fakeCue) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	return nil
}

func (c *fakeCue) SetFinishedHandler(fn func(ok bool)) {
	c.finished = fn
}

func (c *fakeCue) counts() (plays, stops int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays, c.stops
}

// manualTimers captures scheduled replays so tests fire them explicitly.
type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (m *manualTimers) after(d time.Duration, fn func()) stopper {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{d: d, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (m *manualTimers) last() *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) == 0 {
		return nil
	}
	return m.timers[len(m.timers)-1]
}

func (m *manualTimers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

type recordingAnnouncer struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (a *recordingAnnouncer) Announce(ctx context.Context, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.texts = append(a.texts, text)
	return a.err
}

func (a *recordingAnnouncer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.texts)
}

func newTestScheduler(cue Cue, timers *manualTimers, opts ...Option) *Scheduler {
	opts = append(opts, withTimerFunc(timers.after))
	return NewScheduler(cue, opts...)
}

func TestScheduler_StartsSessionOnce(t *testing.T) {
	cue := &fakeCue{}
	timers := &manualTimers{}
	s := newTestScheduler(cue, timers)
	defer s.Close()

	s.OnNear(true, time.Second)
	s.OnNear(false, 500*time.Millisecond)
	s.OnNear(false, 250*time.Millisecond)

	if !s.Active() {
		t.Fatal("expected active session")
	}
	plays, _ := cue.counts()
	if plays != 1 {
		t.Errorf("expected 1 immediate play, got %d", plays)
	}
	if cue.prepares != 1 {
		t.Errorf("expected 1 prepare, got %d", cue.prepares)
	}
	if timers.count() != 0 {
		t.Errorf("replay scheduled before playback finished")
	}

	info, ok := s.Session()
	if !ok {
		t.Fatal("expected session info")
	}
	if info.RepeatInterval != 250*time.Millisecond {
		t.Errorf("expected latest interval 250ms, got %v", info.RepeatInterval)
	}
	if info.ID == "" {
		t.Error("expected session id")
	}
}

func TestScheduler_ReplayUsesLatestInterval(t *testing.T) {
	cue := &fakeCue{}
	timers := &manualTimers{}
	s := newTestScheduler(cue, timers)
	defer s.Close()

	s.OnNear(true, 2*time.Second)
	s.OnNear(false, 450*time.Millisecond)
	cue.finished(true)

	tm := timers.last()
	if tm == nil {
		t.Fatal("expected replay to be scheduled")
	}
	if tm.d != 450*time.Millisecond {
		t.Errorf("expected replay after 450ms, got %v", tm.d)
	}

	tm.fn()
	plays, _ := cue.counts()
	if plays != 2 {
		t.Errorf("expected 2 plays after replay, got %d", plays)
	}

	// Interval changes again before the next completion.
	s.OnNear(false, 60*time.Millisecond)
	cue.finished(true)
	if d := timers.last().d; d != 60*time.Millisecond {
		t.Errorf("expected replay after 60ms, got %v", d)
	}
}

func TestScheduler_OnFarIdempotent(t *testing.T) {
	cue := &fakeCue{}
	timers := &manualTimers{}
	s := newTestScheduler(cue, timers)
	defer s.Close()

	// No session yet: nothing to stop.
	s.OnFar()
	if _, stops := cue.counts(); stops != 0 {
		t.Errorf("expected no stop without a session, got %d", stops)
	}

	s.OnNear(true, time.Second)
	cue.finished(true)
	pending := timers.last()

	s.OnFar()
	s.OnFar()

	if _, stops := cue.counts(); stops != 1 {
		t.Errorf("expected exactly 1 stop, got %d", stops)
	}
	if !pending.stopped {
		t.Error("expected pending replay to be cancelled")
	}
	if s.Active() {
		t.Error("expected session to be inactive")
	}
}

func TestScheduler_NoReplayAfterFar(t *testing.T) {
	t.Run("timer fires after stop", func(t *testing.T) {
		cue := &fakeCue{}
		timers := &manualTimers{}
		s := newTestScheduler(cue, timers)
		defer s.Close()

		s.OnNear(true, time.Second)
		cue.finished(true)
		pending := timers.last()

		s.OnFar()
		// The timer goroutine was already running when Stop was called.
		pending.fn()

		if plays, _ := cue.counts(); plays != 1 {
			t.Errorf("expected no replay after OnFar, got %d plays", plays)
		}
	})

	t.Run("completion arrives after stop", func(t *testing.T) {
		cue := &fakeCue{}
		timers := &manualTimers{}
		s := newTestScheduler(cue, timers)
		defer s.Close()

		s.OnNear(true, time.Second)
		cue.finished(true)
		timers.last().fn() // replay fires and starts playing
		before := timers.count()

		s.OnFar()
		cue.finished(true) // completion of the replay races the stop

		if plays, _ := cue.counts(); plays != 2 {
			t.Errorf("expected 2 plays, got %d", plays)
		}
		if timers.count() != before {
			t.Error("expected no new replay after OnFar")
		}
		if s.Active() {
			t.Error("expected session to be inactive")
		}
	})
}

func TestScheduler_NewSessionAfterFar(t *testing.T) {
	cue := &fakeCue{}
	timers := &manualTimers{}
	s := newTestScheduler(cue, timers)
	defer s.Close()

	s.OnNear(true, time.Second)
	first, _ := s.Session()
	cue.finished(true)
	stale := timers.last()

	s.OnFar()
	s.OnNear(true, time.Second)
	second, _ := s.Session()

	if first.ID == second.ID {
		t.Error("expected a fresh session id")
	}

	// A replay timer from the first session must not beep for the second.
	stale.fn()
	if plays, _ := cue.counts(); plays != 2 {
		t.Errorf("expected 2 plays (one per session), got %d", plays)
	}
}

func TestScheduler_PlayFailureRetries(t *testing.T) {
	cue := &fakeCue{playErr: errors.New("device busy")}
	timers := &manualTimers{}
	s := newTestScheduler(cue, timers)
	defer s.Close()

	s.OnNear(true, 300*time.Millisecond)
	if !s.Active() {
		t.Fatal("audio failure must not end the session")
	}

	tm := timers.last()
	if tm == nil {
		t.Fatal("expected retry to be scheduled")
	}
	cue.mu.Lock()
	cue.playErr = nil
	cue.mu.Unlock()

	tm.fn()
	if plays, _ := cue.counts(); plays != 2 {
		t.Errorf("expected retry play, got %d plays", plays)
	}
}

func TestScheduler_AnnouncesOncePerNearEdge(t *testing.T) {
	cue := &fakeCue{}
	timers := &manualTimers{}
	ann := &recordingAnnouncer{}
	s := newTestScheduler(cue, timers, WithAnnouncer(ann, "Object 3 feet ahead"))

	m := proximity.NewMachine(proximity.DefaultConfig())
	for _, r := range []float32{1.5, 0.9, 0.9, 1.2} {
		res := m.Update(depth.RoundReading(r))
		if res.State == proximity.Near {
			s.OnNear(res.JustBecameNear, res.RepeatInterval)
		} else {
			s.OnFar()
		}
	}

	// Close waits for in-flight announcements.
	s.Close()

	if ann.count() != 1 {
		t.Fatalf("expected 1 announcement, got %d", ann.count())
	}
	if ann.texts[0] != "Object 3 feet ahead" {
		t.Errorf("unexpected announcement %q", ann.texts[0])
	}
	if _, stops := cue.counts(); stops != 1 {
		t.Errorf("expected 1 stop, got %d", stops)
	}
}

func TestScheduler_AnnouncerFailureDoesNotBlock(t *testing.T) {
	cue := &fakeCue{}
	timers := &manualTimers{}
	ann := &recordingAnnouncer{err: errors.New("speech unavailable")}
	s := newTestScheduler(cue, timers, WithAnnouncer(ann, "Object 3 feet ahead"))

	s.OnNear(true, time.Second)
	if plays, _ := cue.counts(); plays != 1 {
		t.Errorf("expected cue to play despite speech failure, got %d", plays)
	}
	s.Close()

	if ann.count() != 1 {
		t.Errorf("expected 1 announcement attempt, got %d", ann.count())
	}
}

func TestScheduler_ClosedIgnoresNear(t *testing.T) {
	cue := &fakeCue{}
	s := newTestScheduler(cue, &manualTimers{})
	s.Close()

	s.OnNear(true, time.Second)
	if s.Active() {
		t.Error("closed scheduler must not start sessions")
	}
}

// asyncCue finishes each playback on its own goroutine, like a real device.
type asyncCue struct {
	mu       sync.Mutex
	gen      int
	plays    int
	stops    int
	finished func(ok bool)
}

func (c *asyncCue) Prepare() error { return nil }

func (c *asyncCue) Play() error {
	c.mu.Lock()
	c.plays++
	gen := c.gen
	fn := c.finished
	c.mu.Unlock()

	go func() {
		time.Sleep(time.Millisecond)
		c.mu.Lock()
		current := c.gen
		c.mu.Unlock()
		if current == gen {
			fn(true)
		}
	}()
	return nil
}

func (c *asyncCue) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.stops++
	return nil
}

func (c *asyncCue) SetFinishedHandler(fn func(ok bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = fn
}

func (c *asyncCue) playCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays
}

func TestScheduler_RealTimersStopCleanly(t *testing.T) {
	cue := &asyncCue{}
	s := NewScheduler(cue)
	defer s.Close()

	s.OnNear(true, 2*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for cue.playCount() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if cue.playCount() < 5 {
		t.Fatalf("expected repeated beeps, got %d", cue.playCount())
	}

	s.OnFar()
	after := cue.playCount()

	time.Sleep(30 * time.Millisecond)
	if got := cue.playCount(); got != after {
		t.Errorf("beeped %d times after OnFar returned", got-after)
	}
}
