package effects

import (
	"errors"

	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
	"github.com/cwbudde/algo-stomp/stomp/tuner"
)

// Tuner feeds the left channel into a tuner tap and passes the frame
// through, or mutes it.
type Tuner struct {
	tap  *tuner.Tap
	mute bool
}

// NewTuner returns a tuner feed writing to tap.
func NewTuner(tap *tuner.Tap, mute bool) (*Tuner, error) {
	if tap == nil {
		return nil, errors.New("tuner effect: nil tap")
	}
	return &Tuner{tap: tap, mute: mute}, nil
}

// Controls returns no controls.
func (t *Tuner) Controls() []param.Control { return nil }

// Muted reports whether the output is silenced.
func (t *Tuner) Muted() bool { return t.mute }

// Transform implements stage.Transform.
func (t *Tuner) Transform(in pcm.Frame, _ param.Vector) pcm.Frame {
	t.tap.Write(in[0])
	if t.mute {
		return pcm.Frame{}
	}
	return in
}
