package depth

import "fmt"

// Region is an inclusive rectangle of frame coordinates scanned for
// obstacles. Rows index the frame height, columns the frame width.
type Region struct {
	RowMin int `yaml:"row_min" json:"row_min"`
	RowMax int `yaml:"row_max" json:"row_max"`
	ColMin int `yaml:"col_min" json:"col_min"`
	ColMax int `yaml:"col_max" json:"col_max"`
}

// DefaultRegion returns the calibrated detection window for the default
// 256x192 sensor: roughly the center of the camera view.
func DefaultRegion() Region {
	return Region{
		RowMin: 71,
		RowMax: 121,
		ColMin: 103,
		ColMax: 178,
	}
}

// Validate checks that the region lies inside a width x height frame.
// The region is never clamped; a mismatch is a configuration failure.
func (r Region) Validate(width, height int) error {
	if r.RowMin < 0 || r.ColMin < 0 {
		return fmt.Errorf("%w: negative origin (row %d, col %d)", ErrRegionOutOfBounds, r.RowMin, r.ColMin)
	}
	if r.RowMin > r.RowMax || r.ColMin > r.ColMax {
		return fmt.Errorf("%w: empty region rows %d..%d cols %d..%d",
			ErrRegionOutOfBounds, r.RowMin, r.RowMax, r.ColMin, r.ColMax)
	}
	if r.RowMax >= height {
		return fmt.Errorf("%w: row %d outside frame height %d", ErrRegionOutOfBounds, r.RowMax, height)
	}
	if r.ColMax >= width {
		return fmt.Errorf("%w: col %d outside frame width %d", ErrRegionOutOfBounds, r.ColMax, width)
	}
	return nil
}

// Rows returns the number of rows covered.
func (r Region) Rows() int { return r.RowMax - r.RowMin + 1 }

// Cols returns the number of columns covered.
func (r Region) Cols() int { return r.ColMax - r.ColMin + 1 }

func (r Region) String() string {
	return fmt.Sprintf("rows %d..%d cols %d..%d", r.RowMin, r.RowMax, r.ColMin, r.ColMax)
}
