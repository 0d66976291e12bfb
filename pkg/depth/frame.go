// Package depth extracts obstacle distances from sensor depth maps.
//
// A depth map is a row-major grid of float32 distances in meters. The
// sampler scans a fixed rectangular region of interest and reports the
// nearest distance, rounded to the centimeter, for the proximity logic
// downstream.
package depth

import (
	"math"
	"time"
)

// Default sensor geometry, matching the smoothed scene depth map
// delivered by the phone (256x192, landscape).
const (
	DefaultWidth  = 256
	DefaultHeight = 192
)

// Frame is a single depth map delivered by the sensor.
// Depth is read-only to the sampler and is not retained after processing.
type Frame struct {
	Width     int
	Height    int
	Depth     []float32 // row-major: Depth[row*Width+col]
	Timestamp time.Time
}

// HasDepth reports whether the frame carries a usable depth channel.
func (f *Frame) HasDepth() bool {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return false
	}
	return len(f.Depth) == f.Width*f.Height
}

// At returns the distance at the given row and column.
func (f *Frame) At(row, col int) float32 {
	return f.Depth[row*f.Width+col]
}

// Reading is a minimum-distance sample in meters, rounded to 0.01.
type Reading float32

// RoundReading rounds a raw distance to hundredths of a meter.
// All proximity decisions consume the rounded value.
func RoundReading(meters float32) Reading {
	scaled := meters * 100
	return Reading(float32(math.Round(float64(scaled))) / 100)
}

// Meters returns the reading as float64 meters.
func (r Reading) Meters() float64 {
	return float64(r)
}

// Centimeters returns the display value: the rounded reading times 100,
// truncated to an integer in float32 arithmetic.
func (r Reading) Centimeters() int {
	cm := float32(r) * 100
	return int(cm)
}
