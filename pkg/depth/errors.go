package depth

import "errors"

var (
	// ErrRegionOutOfBounds means the region of interest does not fit the
	// frame. This is a configuration failure, not a per-frame condition.
	ErrRegionOutOfBounds = errors.New("depth: region of interest out of bounds")

	// ErrMissingDepth means the frame has no usable depth samples.
	// Callers skip the frame and wait for the next one.
	ErrMissingDepth = errors.New("depth: frame has no usable depth data")
)
