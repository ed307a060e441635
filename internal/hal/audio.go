package hal

import (
	"math"
	"sync"

	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

// Silence is a source of zero frames that never ends.
type Silence struct{}

// ReadFrames implements AudioSource.
func (Silence) ReadFrames(frames []pcm.Frame) (int, error) {
	clear(frames)
	return len(frames), nil
}

// Sine is an endless stereo test tone.
type Sine struct {
	step  float64
	amp   float64
	phase float64
}

// NewSine returns a tone at freq Hz with peak amplitude amp in [0, 1].
func NewSine(freq, amp float64, sampleRate int) *Sine {
	return &Sine{
		step: 2 * math.Pi * freq / float64(sampleRate),
		amp:  amp,
	}
}

// ReadFrames implements AudioSource.
func (s *Sine) ReadFrames(frames []pcm.Frame) (int, error) {
	for i := range frames {
		v := pcm.FromFloat(s.amp * math.Sin(s.phase))
		frames[i] = pcm.Frame{v, v}
		s.phase += s.step
		if s.phase >= 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
	return len(frames), nil
}

// Discard drops everything written to it.
type Discard struct{}

// WriteFrames implements AudioSink.
func (Discard) WriteFrames([]pcm.Frame) error { return nil }

// Recorder keeps every frame written to it.
type Recorder struct {
	mu     sync.Mutex
	frames []pcm.Frame
}

// WriteFrames implements AudioSink.
func (r *Recorder) WriteFrames(frames []pcm.Frame) error {
	r.mu.Lock()
	r.frames = append(r.frames, frames...)
	r.mu.Unlock()
	return nil
}

// Frames returns a copy of the recorded frames.
func (r *Recorder) Frames() []pcm.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pcm.Frame(nil), r.frames...)
}
