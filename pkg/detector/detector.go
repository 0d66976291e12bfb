// Package detector runs the frame pipeline: each depth frame is sampled,
// fed to the proximity state machine and the result drives the alert
// scheduler. Frames are processed one at a time, in arrival order, on the
// goroutine that calls Run.
package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-depthguard/pkg/alert"
	"github.com/teslashibe/go-depthguard/pkg/depth"
	"github.com/teslashibe/go-depthguard/pkg/metrics"
	"github.com/teslashibe/go-depthguard/pkg/proximity"
)

// DefaultQueueSize is the number of frames buffered between Submit and Run.
const DefaultQueueSize = 4

// ErrAlreadyRunning is returned when Run is called while another Run is active.
var ErrAlreadyRunning = errors.New("detector: already running")

// Alerter receives proximity decisions. *alert.Scheduler implements it.
type Alerter interface {
	OnNear(justBecameNear bool, interval time.Duration)
	OnFar()
	Session() (alert.SessionInfo, bool)
}

// ConfigurationError reports a region that cannot be sampled from the
// frames the sensor produces. It is fatal: detection cannot continue.
type ConfigurationError struct {
	Region depth.Region
	Width  int
	Height int
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("detector: configuration failure: region %s on %dx%d frame: %v",
		e.Region, e.Width, e.Height, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithQueueSize sets how many frames may wait for the worker.
func WithQueueSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithSampler replaces depth.Sample.
func WithSampler(fn depth.SampleFunc) Option {
	return func(d *Detector) {
		if fn != nil {
			d.sample = fn
		}
	}
}

// Detector serializes frame processing for one sensor.
type Detector struct {
	region    depth.Region
	machine   *proximity.Machine
	alerts    Alerter
	sample    depth.SampleFunc
	logger    *slog.Logger
	queueSize int

	queue   chan *depth.Frame
	running atomic.Bool

	frames  atomic.Uint64
	skipped atomic.Uint64
	dropped atomic.Uint64

	mu        sync.RWMutex
	status    Status
	observers map[int]func(Status)
	nextObs   int
}

// New creates a detector. machine and alerts are owned by the caller and
// outlive individual alert sessions.
func New(region depth.Region, machine *proximity.Machine, alerts Alerter, opts ...Option) *Detector {
	d := &Detector{
		region:    region,
		machine:   machine,
		alerts:    alerts,
		sample:    depth.Sample,
		logger:    slog.Default(),
		queueSize: DefaultQueueSize,
		observers: make(map[int]func(Status)),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "detector")
	d.queue = make(chan *depth.Frame, d.queueSize)
	d.status = Status{State: proximity.Far, Category: depth.Category(0)}
	return d
}

// Region returns the configured region of interest.
func (d *Detector) Region() depth.Region {
	return d.region
}

// Validate checks the region against the sensor dimensions.
func (d *Detector) Validate(width, height int) error {
	if err := d.region.Validate(width, height); err != nil {
		return &ConfigurationError{Region: d.region, Width: width, Height: height, Err: err}
	}
	return nil
}

// Submit queues a frame for processing. It never blocks: when the queue is
// full the frame is dropped and false is returned.
func (d *Detector) Submit(f *depth.Frame) bool {
	select {
	case d.queue <- f:
		return true
	default:
		n := d.dropped.Add(1)
		metrics.ObserveFrame(metrics.ResultDropped, 0)
		if n == 1 || n%100 == 0 {
			d.logger.Warn("frame queue full, dropping frames", "dropped_total", n)
		}
		return false
	}
}

// Run processes queued frames until ctx is done or a configuration failure
// occurs. Either way the alert session is torn down before Run returns.
// Cancellation returns nil; a configuration failure returns a
// *ConfigurationError.
func (d *Detector) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer d.running.Store(false)

	d.logger.Info("detector started", "region", d.region.String(), "queue", d.queueSize)

	for {
		select {
		case <-ctx.Done():
			d.alerts.OnFar()
			d.logger.Info("detector stopped",
				"frames", d.frames.Load(),
				"skipped", d.skipped.Load(),
				"dropped", d.dropped.Load(),
			)
			return nil
		case f := <-d.queue:
			if err := d.process(f); err != nil {
				d.alerts.OnFar()
				return err
			}
		}
	}
}

func (d *Detector) process(f *depth.Frame) error {
	start := time.Now()

	reading, err := d.sample(f, d.region)
	switch {
	case err == nil:
	case errors.Is(err, depth.ErrRegionOutOfBounds):
		metrics.ObserveFrame(metrics.ResultError, 0)
		cerr := &ConfigurationError{Region: d.region, Width: f.Width, Height: f.Height, Err: err}
		d.logger.Error("configuration failure", "error", cerr)
		return cerr
	case errors.Is(err, depth.ErrMissingDepth):
		d.skipped.Add(1)
		metrics.ObserveFrame(metrics.ResultSkipped, 0)
		d.logger.Debug("frame skipped", "reason", err)
		return nil
	default:
		d.skipped.Add(1)
		metrics.ObserveFrame(metrics.ResultError, 0)
		d.logger.Warn("frame sampling failed", "error", err)
		return nil
	}

	res := d.machine.Update(reading)
	switch {
	case res.State == proximity.Near:
		if res.JustBecameNear {
			metrics.IncTransition(metrics.EdgeNear)
			d.logger.Info("object near", "distance_cm", reading.Centimeters())
		}
		d.alerts.OnNear(res.JustBecameNear, res.RepeatInterval)
	case res.JustBecameFar:
		metrics.IncTransition(metrics.EdgeFar)
		d.logger.Info("object cleared", "distance_cm", reading.Centimeters())
		d.alerts.OnFar()
	}

	n := d.frames.Add(1)
	metrics.SetDistance(reading.Meters())
	metrics.ObserveFrame(metrics.ResultOK, time.Since(start))

	d.publish(d.buildStatus(n, f, res))
	return nil
}

func (d *Detector) buildStatus(seq uint64, f *depth.Frame, res proximity.Result) Status {
	ts := f.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	st := Status{
		Seq:            seq,
		Timestamp:      ts,
		HasReading:     true,
		DistanceMeters: res.Reading.Meters(),
		DistanceCm:     res.Reading.Centimeters(),
		Category:       depth.Category(res.Reading.Meters()),
		State:          res.State,
		JustBecameNear: res.JustBecameNear,
		Frames:         seq,
		Skipped:        d.skipped.Load(),
		Dropped:        d.dropped.Load(),
	}
	if info, ok := d.alerts.Session(); ok {
		st.AlertActive = true
		st.RepeatIntervalMs = info.RepeatInterval.Milliseconds()
		st.Session = &info
	}
	return st
}
