package detector

import (
	"time"

	"github.com/teslashibe/go-depthguard/pkg/alert"
	"github.com/teslashibe/go-depthguard/pkg/proximity"
)

// Status is the detector's view after the most recent processed frame.
type Status struct {
	Seq              uint64             `json:"seq"`
	Timestamp        time.Time          `json:"ts"`
	HasReading       bool               `json:"has_reading"`
	DistanceMeters   float64            `json:"distance_m"`
	DistanceCm       int                `json:"distance_cm"`
	Category         string             `json:"category"`
	State            proximity.State    `json:"state"`
	JustBecameNear   bool               `json:"just_became_near"`
	AlertActive      bool               `json:"alert_active"`
	RepeatIntervalMs int64              `json:"repeat_interval_ms"`
	Session          *alert.SessionInfo `json:"session,omitempty"`
	Frames           uint64             `json:"frames"`
	Skipped          uint64             `json:"skipped"`
	Dropped          uint64             `json:"dropped"`
}

// Status returns the last published status. Counters are current.
func (d *Detector) Status() Status {
	d.mu.RLock()
	st := d.status
	d.mu.RUnlock()

	st.Skipped = d.skipped.Load()
	st.Dropped = d.dropped.Load()
	return st
}

// Subscribe registers fn to receive every published status. fn runs on the
// worker goroutine and must not block. The returned func unsubscribes.
func (d *Detector) Subscribe(fn func(Status)) (unsubscribe func()) {
	d.mu.Lock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.observers, id)
		d.mu.Unlock()
	}
}

func (d *Detector) publish(st Status) {
	d.mu.Lock()
	d.status = st
	fns := make([]func(Status), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
