//go:build gocv

package depth

import (
	"image"
	"math"
	"unsafe"

	"gocv.io/x/gocv"
)

func init() {
	Fastest = SampleCV
}

// SampleCV computes the same result as Sample using OpenCV's MinMaxLoc over
// the region. Non-finite samples are replaced with +MaxFloat32 first so they
// never win the minimum.
func SampleCV(f *Frame, region Region) (Reading, error) {
	if !f.HasDepth() {
		return 0, ErrMissingDepth
	}
	if err := region.Validate(f.Width, f.Height); err != nil {
		return 0, err
	}

	clean := make([]float32, len(f.Depth))
	copy(clean, f.Depth)
	for i, d := range clean {
		if math.IsNaN(float64(d)) || math.IsInf(float64(d), 0) {
			clean[i] = math.MaxFloat32
		}
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(&clean[0])), len(clean)*4)
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV32F, raw)
	if err != nil {
		return 0, err
	}
	defer mat.Close()

	// image.Rect max bounds are exclusive.
	roi := mat.Region(image.Rect(region.ColMin, region.RowMin, region.ColMax+1, region.RowMax+1))
	defer roi.Close()

	minVal, _, _, _ := gocv.MinMaxLoc(roi)
	if minVal == math.MaxFloat32 {
		return 0, ErrMissingDepth
	}
	return RoundReading(minVal), nil
}
