// Package proximity turns distance readings into near/far alert decisions.
package proximity

import (
	"fmt"
	"time"
)

// Config holds the alerting thresholds and beep cadence scaling.
type Config struct {
	// ThresholdMeters is the distance at or under which alerts fire.
	ThresholdMeters float64 `yaml:"threshold_meters" json:"threshold_meters"`

	// BaseRepeatFactor converts meters to nominal seconds between beeps.
	BaseRepeatFactor float64 `yaml:"base_repeat_factor" json:"base_repeat_factor"`

	// Under MidRangeMeters the interval is multiplied by MidRepeatScale.
	MidRangeMeters float64 `yaml:"mid_range_meters" json:"mid_range_meters"`
	MidRepeatScale float64 `yaml:"mid_repeat_scale" json:"mid_repeat_scale"`

	// Under MinRangeMeters the interval is multiplied by MinRepeatScale.
	MinRangeMeters float64 `yaml:"min_range_meters" json:"min_range_meters"`
	MinRepeatScale float64 `yaml:"min_repeat_scale" json:"min_repeat_scale"`

	// Announcement is spoken once each time an obstacle becomes near.
	Announcement string `yaml:"announcement" json:"announcement"`
}

// DefaultConfig returns the stock tuning: alert inside 1 m (about 3 feet),
// beep every 3 s per meter, 2x faster under 0.5 m and 5x faster under 0.25 m.
func DefaultConfig() Config {
	return Config{
		ThresholdMeters:  1.0,
		BaseRepeatFactor: 3,
		MidRangeMeters:   0.5,
		MidRepeatScale:   0.5,
		MinRangeMeters:   0.25,
		MinRepeatScale:   0.2,
		Announcement:     "Object 3 feet ahead",
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ThresholdMeters <= 0 {
		return fmt.Errorf("threshold_meters must be positive, got %v", c.ThresholdMeters)
	}
	if c.BaseRepeatFactor <= 0 {
		return fmt.Errorf("base_repeat_factor must be positive, got %v", c.BaseRepeatFactor)
	}
	if c.MidRepeatScale <= 0 || c.MidRepeatScale > 1 {
		return fmt.Errorf("mid_repeat_scale must be in (0, 1], got %v", c.MidRepeatScale)
	}
	if c.MinRepeatScale <= 0 || c.MinRepeatScale > 1 {
		return fmt.Errorf("min_repeat_scale must be in (0, 1], got %v", c.MinRepeatScale)
	}
	if c.MinRangeMeters < 0 || c.MinRangeMeters > c.MidRangeMeters {
		return fmt.Errorf("min_range_meters (%v) must be between 0 and mid_range_meters (%v)",
			c.MinRangeMeters, c.MidRangeMeters)
	}
	return nil
}

// RepeatInterval returns the pause between beeps for a near reading.
// Computed in float32, like the readings themselves.
func (c *Config) RepeatInterval(meters float32) time.Duration {
	interval := meters * float32(c.BaseRepeatFactor)
	switch {
	case meters < float32(c.MinRangeMeters):
		interval *= float32(c.MinRepeatScale)
	case meters < float32(c.MidRangeMeters):
		interval *= float32(c.MidRepeatScale)
	}
	return time.Duration(float64(interval) * float64(time.Second))
}
