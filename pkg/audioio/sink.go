package audioio

import (
	"context"
	"io"
)

// Sink plays clips on an output device.
//
// Play blocks until the clip has been played or ctx is cancelled, in which
// case playback is cut off and ctx.Err() is returned. Concurrent Play calls
// are mixed by the backend (ALSA dmix) or serialized, depending on the
// device.
type Sink interface {
	Play(ctx context.Context, clip AudioChunk) error

	// Config returns the output configuration. Clips should be converted
	// to its sample rate and channel count before playing.
	Config() Config

	// Name returns the backend name ("alsa", "mock").
	Name() string

	io.Closer
}

// SinkStats contains playback counters.
type SinkStats struct {
	ClipsPlayed      int64  `json:"clips_played"`
	ClipsInterrupted int64  `json:"clips_interrupted"`
	Errors           int64  `json:"errors"`
	Backend          string `json:"backend"`
}

// SinkWithStats extends Sink with statistics.
type SinkWithStats interface {
	Sink
	Stats() SinkStats
}
