package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/teslashibe/go-depthguard/pkg/depth"
)

// Binary depth frame layout, little endian:
//
//	0  magic "DPTH"
//	4  version (1)
//	5  reserved [3]
//	8  width  uint32
//	12 height uint32
//	16 timestamp unix ms int64
//	24 width*height float32 meters, row-major
//
// A frame with width*height == 0 carries no depth channel.
const (
	FrameVersion    = 1
	FrameHeaderSize = 24

	// MaxFrameSamples bounds decoded allocations.
	MaxFrameSamples = 4096 * 4096
)

var frameMagic = [4]byte{'D', 'P', 'T', 'H'}

// Frame codec errors
var (
	ErrShortFrame    = errors.New("protocol: frame shorter than header")
	ErrBadMagic      = errors.New("protocol: bad frame magic")
	ErrBadVersion    = errors.New("protocol: unsupported frame version")
	ErrFrameSize     = errors.New("protocol: frame payload size mismatch")
	ErrFrameTooLarge = errors.New("protocol: frame dimensions too large")
)

// EncodeFrame serializes f. A frame without depth is encoded with zero
// dimensions.
func EncodeFrame(f *depth.Frame) []byte {
	w, h := f.Width, f.Height
	if !f.HasDepth() {
		w, h = 0, 0
	}
	n := w * h

	buf := make([]byte, FrameHeaderSize+n*4)
	copy(buf[0:4], frameMagic[:])
	buf[4] = FrameVersion
	binary.LittleEndian.PutUint32(buf[8:12], uint32(w))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h))
	var ts int64
	if !f.Timestamp.IsZero() {
		ts = f.Timestamp.UnixMilli()
	}
	binary.LittleEndian.PutUint64(buf[16:24], uint64(ts))

	off := FrameHeaderSize
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f.Depth[i]))
		off += 4
	}
	return buf
}

// DecodeFrame parses a binary depth frame. A zero-sized frame decodes to a
// frame whose HasDepth is false.
func DecodeFrame(data []byte) (*depth.Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, ErrShortFrame
	}
	if [4]byte(data[0:4]) != frameMagic {
		return nil, ErrBadMagic
	}
	if data[4] != FrameVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, data[4])
	}

	w := binary.LittleEndian.Uint32(data[8:12])
	h := binary.LittleEndian.Uint32(data[12:16])
	ts := int64(binary.LittleEndian.Uint64(data[16:24]))

	n := uint64(w) * uint64(h)
	if n > MaxFrameSamples {
		return nil, fmt.Errorf("%w: %dx%d", ErrFrameTooLarge, w, h)
	}
	if uint64(len(data)-FrameHeaderSize) != n*4 {
		return nil, fmt.Errorf("%w: %dx%d with %d payload bytes", ErrFrameSize, w, h, len(data)-FrameHeaderSize)
	}

	f := &depth.Frame{Width: int(w), Height: int(h)}
	if ts != 0 {
		f.Timestamp = time.UnixMilli(ts)
	}
	if n == 0 {
		return f, nil
	}

	f.Depth = make([]float32, n)
	off := FrameHeaderSize
	for i := range f.Depth {
		f.Depth[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}
	return f, nil
}
