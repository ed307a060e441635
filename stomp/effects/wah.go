package effects

import (
	"math"

	"github.com/cwbudde/algo-stomp/dsp/biquad"
	"github.com/cwbudde/algo-stomp/dsp/core"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

const (
	wahMinHz  = 50.0
	wahMaxHz  = 10000.0
	wahGlide  = 10.0
	wahRecalc = 16
)

var wahControls = []param.Control{
	{Name: "filter", Channel: param.Pot0, Min: wahMinHz, Max: wahMaxHz, Unit: "Hz", Exp: true},
	{Name: "q", Channel: param.Pot1, Min: math.Sqrt2 / 2, Max: 2},
	{Name: "mix", Channel: param.Pot2, Min: 0, Max: 1},
	{Name: "sweep", Channel: param.Expression, Min: 0, Max: 1},
}

// Wah is a swept band-pass. The expression channel adds to the filter
// knob's position, so a pedal sweeps from the knob setting upward.
type Wah struct {
	sampleRate float64

	bands [pcm.Channels]*biquad.Section

	gate   versionGate
	target float64
	pos    glide
	q      float64
	mix    float64
	count  int
}

// NewWah returns a wah for the given sample rate.
func NewWah(sampleRate float64) (*Wah, error) {
	if err := validateSampleRate("wah", sampleRate); err != nil {
		return nil, err
	}
	w := &Wah{
		sampleRate: sampleRate,
		pos:        newGlide(wahGlide, sampleRate),
	}
	for c := range w.bands {
		w.bands[c] = biquad.NewSection(biquad.Identity())
	}
	return w, nil
}

// Controls returns the wah's controls.
func (w *Wah) Controls() []param.Control { return wahControls }

// Frequency returns the current center frequency in Hz.
func (w *Wah) Frequency() float64 { return wahControls[0].Map(w.pos.value) }

// Reset clears the filters.
func (w *Wah) Reset() {
	for _, s := range w.bands {
		s.Reset()
	}
	w.gate.reset()
	w.pos.reset()
	w.count = 0
}

// Transform implements stage.Transform.
func (w *Wah) Transform(in pcm.Frame, p param.Vector) pcm.Frame {
	recalc := false
	if w.gate.changed(p) {
		w.target = core.Unit(p.Get(wahControls[0].Channel) + wahControls[3].Value(p))
		w.q = wahControls[1].Value(p)
		w.mix = wahControls[2].Value(p)
		recalc = true
	}
	w.pos.next(w.target)
	w.count++
	if w.count >= wahRecalc {
		w.count = 0
		recalc = recalc || !w.pos.settled(w.target, 1e-6)
	}
	if recalc {
		coeffs := biquad.Bandpass(w.Frequency(), w.q, w.sampleRate)
		for _, s := range w.bands {
			s.SetCoefficients(coeffs)
		}
	}

	var out pcm.Frame
	for c := range out {
		x := pcm.ToFloat(in[c])
		y := w.bands[c].ProcessSample(x)
		out[c] = pcm.FromFloat(x*(1-w.mix) + y*w.mix)
	}
	return out
}
