package depth

import "math"

// SampleFunc computes the reading for region of a frame.
type SampleFunc func(f *Frame, region Region) (Reading, error)

// Fastest is the quickest sampler compiled into this build. Builds with the
// gocv tag switch it to SampleCV.
var Fastest SampleFunc = Sample

// Sample returns the nearest distance inside region, rounded to 0.01 m.
//
// The outer loop walks rows and the inner loop walks columns, reading
// Depth[row*Width+col]. Non-finite samples are ignored.
func Sample(f *Frame, region Region) (Reading, error) {
	if !f.HasDepth() {
		return 0, ErrMissingDepth
	}
	if err := region.Validate(f.Width, f.Height); err != nil {
		return 0, err
	}

	minDist := float32(math.MaxFloat32)
	found := false
	for row := region.RowMin; row <= region.RowMax; row++ {
		base := row * f.Width
		for col := region.ColMin; col <= region.ColMax; col++ {
			d := f.Depth[base+col]
			if math.IsNaN(float64(d)) || math.IsInf(float64(d), 0) {
				continue
			}
			if d < minDist {
				minDist = d
				found = true
			}
		}
	}
	if !found {
		return 0, ErrMissingDepth
	}

	return RoundReading(minDist), nil
}
