package testutil

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

// Sine generates n stereo frames of a sine at freqHz with peak amplitude
// amp in [0, 1]. Both channels carry the same sample.
func Sine(freqHz, amp, sampleRate float64, n int) []pcm.Frame {
	out := make([]pcm.Frame, n)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		s := pcm.FromFloat(amp * math.Sin(step*float64(i)))
		out[i] = pcm.Frame{s, s}
	}
	return out
}

// Noise generates n frames of white noise with a fixed seed.
func Noise(seed int64, amp float64, n int) []pcm.Frame {
	out := make([]pcm.Frame, n)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = pcm.Frame{
			pcm.FromFloat((rng.Float64()*2 - 1) * amp),
			pcm.FromFloat((rng.Float64()*2 - 1) * amp),
		}
	}
	return out
}

// Impulse returns n silent frames with a full-scale frame at pos.
func Impulse(n, pos int) []pcm.Frame {
	out := make([]pcm.Frame, n)
	if pos >= 0 && pos < n {
		out[pos] = pcm.Frame{pcm.MaxSample, pcm.MaxSample}
	}
	return out
}

// Peak returns the largest absolute left-channel value in [0, 1].
func Peak(frames []pcm.Frame) float64 {
	var p float64
	for _, f := range frames {
		p = max(p, math.Abs(pcm.ToFloat(f[0])))
	}
	return p
}

// RMS returns the left-channel RMS level in [0, 1].
func RMS(frames []pcm.Frame) float64 {
	if len(frames) == 0 {
		return 0
	}
	var sum float64
	for _, f := range frames {
		v := pcm.ToFloat(f[0])
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frames)))
}
