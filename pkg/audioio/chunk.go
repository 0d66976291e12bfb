package audioio

import (
	"math"
	"time"
)

// AudioChunk is interleaved PCM16 audio.
type AudioChunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Bytes returns the chunk as little-endian PCM16.
func (c *AudioChunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// Duration returns the playback length of the chunk.
func (c *AudioChunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(float64(frames) / float64(c.SampleRate) * float64(time.Second))
}

// ChunkFromBytes builds a chunk from little-endian PCM16 bytes.
func ChunkFromBytes(data []byte, sampleRate, channels int) AudioChunk {
	return AudioChunk{
		Samples:    BytesToSamples(data),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Tone synthesizes a sine beep with short linear fades to avoid clicks.
// amplitude is 0..1.
func Tone(frequency float64, d time.Duration, amplitude float64, sampleRate, channels int) AudioChunk {
	frames := int(float64(sampleRate) * d.Seconds())
	samples := make([]int16, frames*channels)

	fade := sampleRate / 200 // 5ms
	if fade*2 > frames {
		fade = frames / 2
	}

	for i := 0; i < frames; i++ {
		gain := amplitude
		switch {
		case i < fade:
			gain *= float64(i) / float64(fade)
		case i >= frames-fade:
			gain *= float64(frames-1-i) / float64(fade)
		}
		v := int16(gain * 32767 * math.Sin(2*math.Pi*frequency*float64(i)/float64(sampleRate)))
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = v
		}
	}

	return AudioChunk{Samples: samples, SampleRate: sampleRate, Channels: channels}
}
