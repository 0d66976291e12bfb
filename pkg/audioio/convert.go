package audioio

// Convert returns c resampled to sampleRate and remixed to channels.
// Resampling is linear interpolation, adequate for beeps and speech.
func Convert(c AudioChunk, sampleRate, channels int) AudioChunk {
	samples := c.Samples
	from := c.Channels
	if from == 0 {
		from = 1
	}

	if from == 2 && channels == 1 {
		samples = StereoToMono(samples)
		from = 1
	}

	if c.SampleRate != sampleRate && c.SampleRate > 0 {
		if from == 2 {
			samples = MonoToStereo(Resample(StereoToMono(samples), c.SampleRate, sampleRate))
		} else {
			samples = Resample(samples, c.SampleRate, sampleRate)
		}
	}

	if from == 1 && channels == 2 {
		samples = MonoToStereo(samples)
	}

	return AudioChunk{Samples: samples, SampleRate: sampleRate, Channels: channels}
}

// Resample converts mono audio between sample rates using linear interpolation.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	n := int(float64(len(samples)) / ratio)
	out := make([]int16, n)

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(idx)
		a := float64(samples[idx])
		b := float64(samples[idx+1])
		out[i] = int16(a + frac*(b-a))
	}
	return out
}

// BytesToSamples decodes little-endian PCM16.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes encodes samples as little-endian PCM16.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}

// MonoToStereo duplicates each sample into both channels.
func MonoToStereo(samples []int16) []int16 {
	stereo := make([]int16, len(samples)*2)
	for i, s := range samples {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}
	return stereo
}

// StereoToMono averages interleaved stereo pairs.
func StereoToMono(samples []int16) []int16 {
	mono := make([]int16, len(samples)/2)
	for i := range mono {
		mono[i] = int16((int32(samples[i*2]) + int32(samples[i*2+1])) / 2)
	}
	return mono
}
