package proximity

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-depthguard/pkg/depth"
)

// State is the binary proximity state.
type State int

const (
	Far State = iota
	Near
)

func (s State) String() string {
	if s == Near {
		return "near"
	}
	return "far"
}

// MarshalText encodes the state as "near" or "far".
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts "near" or "far".
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "near":
		*s = Near
	case "far":
		*s = Far
	default:
		return fmt.Errorf("proximity: unknown state %q", b)
	}
	return nil
}

// Result is the outcome of feeding one reading to the Machine.
type Result struct {
	Reading depth.Reading
	State   State

	// JustBecameNear is set on the Far->Near edge only.
	JustBecameNear bool

	// JustBecameFar is set on the Near->Far edge only.
	JustBecameFar bool

	// RepeatInterval is the beep cadence while Near, zero when Far.
	RepeatInterval time.Duration
}

// Machine tracks the Far/Near state across successive readings.
// It is not safe for concurrent use; callers feed it from a single
// serialized frame-processing path.
type Machine struct {
	cfg   Config
	state State
}

// NewMachine creates a machine in the Far state.
func NewMachine(cfg Config) *Machine {
	return &Machine{cfg: cfg, state: Far}
}

// Update consumes one reading and reports the new state and edges.
func (m *Machine) Update(r depth.Reading) Result {
	prev := m.state
	next := Far
	if float32(r) <= float32(m.cfg.ThresholdMeters) {
		next = Near
	}
	m.state = next

	res := Result{
		Reading:        r,
		State:          next,
		JustBecameNear: prev == Far && next == Near,
		JustBecameFar:  prev == Near && next == Far,
	}
	if next == Near {
		res.RepeatInterval = m.cfg.RepeatInterval(float32(r))
	}
	return res
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Config returns the machine's configuration.
func (m *Machine) Config() Config {
	return m.cfg
}
