package audio

import "math"

// FloatToInt16 converts float32 samples in [-1, 1] to 16-bit PCM.
// Out-of-range samples are clamped before quantization, and each value
// is rounded to the nearest integer.
func FloatToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = int16(math.Round(v * 32767))
	}
	return out
}

// Int16ToFloat converts 16-bit PCM samples back to float32 in [-1, 1].
// It is the inverse of FloatToInt16 up to quantization error.
func Int16ToFloat(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32767
	}
	return out
}

// DownmixStereoToMono averages interleaved stereo frames into mono samples.
// The input length must be even (one left and one right value per frame);
// a trailing unpaired sample is dropped.
func DownmixStereoToMono(interleaved []float32) []float32 {
	frames := len(interleaved) / 2
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		out[i] = (interleaved[i*2] + interleaved[i*2+1]) / 2
	}
	return out
}

// Downsample keeps every factor-th sample, producing floor(len/factor)
// output samples. This is naive decimation with no anti-alias filtering;
// it is only suitable for level metering and other non-critical paths.
// A factor below 1 returns nil.
func Downsample(samples []float32, factor int) []float32 {
	if factor < 1 {
		return nil
	}
	out := make([]float32, len(samples)/factor)
	for i := range out {
		out[i] = samples[i*factor]
	}
	return out
}
