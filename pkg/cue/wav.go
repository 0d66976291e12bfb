package cue

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"github.com/teslashibe/go-depthguard/pkg/audioio"
)

// LoadWAV decodes a PCM WAV file into PCM16 samples.
func LoadWAV(path string) (audioio.AudioChunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return audioio.AudioChunk{}, fmt.Errorf("open cue asset: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return audioio.AudioChunk{}, fmt.Errorf("cue asset %s: not a PCM wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return audioio.AudioChunk{}, fmt.Errorf("decode cue asset: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return audioio.AudioChunk{}, fmt.Errorf("cue asset %s: no samples", path)
	}

	samples := make([]int16, len(buf.Data))
	switch dec.BitDepth {
	case 8:
		for i, v := range buf.Data {
			samples[i] = int16((v - 128) << 8)
		}
	case 16:
		for i, v := range buf.Data {
			samples[i] = int16(v)
		}
	case 24:
		for i, v := range buf.Data {
			samples[i] = int16(v >> 8)
		}
	case 32:
		for i, v := range buf.Data {
			samples[i] = int16(v >> 16)
		}
	default:
		return audioio.AudioChunk{}, fmt.Errorf("cue asset %s: unsupported bit depth %d", path, dec.BitDepth)
	}

	return audioio.AudioChunk{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}, nil
}
