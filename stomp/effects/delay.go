package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-stomp/dsp/biquad"
	"github.com/cwbudde/algo-stomp/dsp/core"
	"github.com/cwbudde/algo-stomp/dsp/delay"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

const (
	delayMinMs        = 10.0
	delayMaxMs        = 1000.0
	delayExpressionMs = 500.0
	delayGlideMs      = 50.0

	defaultDelayFilterHz = 6000.0
)

var delayControls = []param.Control{
	{Name: "time", Channel: param.Pot0, Min: delayMinMs, Max: delayMaxMs, Unit: "ms"},
	{Name: "regen", Channel: param.Pot1, Min: 0, Max: 0.95},
	{Name: "mix", Channel: param.Pot2, Min: 0, Max: 1},
	{Name: "time+", Channel: param.Expression, Min: 0, Max: delayExpressionMs, Unit: "ms"},
}

// DelayOption configures a Delay.
type DelayOption func(*Delay) error

// WithDelayFilter sets the cutoff of the low-pass in the feedback loop.
func WithDelayFilter(hz float64) DelayOption {
	return func(d *Delay) error {
		if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
			return fmt.Errorf("delay filter must be > 0 and finite: %f", hz)
		}
		d.filterHz = hz
		return nil
	}
}

// Delay is a feedback echo with a low-pass in the feedback path. The
// expression channel lengthens the delay time.
type Delay struct {
	sampleRate float64
	filterHz   float64

	lines  [pcm.Channels]*delay.Line
	filter [pcm.Channels]*biquad.Section

	gate     versionGate
	target   float64
	time     glide
	feedback float64
	mix      float64
}

// NewDelay returns a delay for the given sample rate.
func NewDelay(sampleRate float64, opts ...DelayOption) (*Delay, error) {
	if err := validateSampleRate("delay", sampleRate); err != nil {
		return nil, err
	}
	d := &Delay{
		sampleRate: sampleRate,
		filterHz:   defaultDelayFilterHz,
		time:       newGlide(delayGlideMs, sampleRate),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	size := int(math.Ceil((delayMaxMs+delayExpressionMs)*sampleRate/1000)) + 2
	coeffs := biquad.Lowpass(d.filterHz, math.Sqrt2/2, sampleRate)
	for c := range d.lines {
		line, err := delay.New(size)
		if err != nil {
			return nil, fmt.Errorf("delay line: %w", err)
		}
		d.lines[c] = line
		d.filter[c] = biquad.NewSection(coeffs)
	}
	return d, nil
}

// Controls returns the delay's controls.
func (d *Delay) Controls() []param.Control { return delayControls }

// Reset clears the delay lines and filters.
func (d *Delay) Reset() {
	for c := range d.lines {
		d.lines[c].Reset()
		d.filter[c].Reset()
	}
	d.gate.reset()
	d.time.reset()
}

// DelaySamples returns the current, possibly gliding, delay in samples.
func (d *Delay) DelaySamples() float64 { return d.time.value }

// Transform implements stage.Transform.
func (d *Delay) Transform(in pcm.Frame, p param.Vector) pcm.Frame {
	if d.gate.changed(p) {
		ms := delayControls[0].Value(p) + delayControls[3].Value(p)
		d.target = ms * d.sampleRate / 1000
		d.feedback = delayControls[1].Value(p)
		d.mix = delayControls[2].Value(p)
	}
	samples := d.time.next(d.target)

	var out pcm.Frame
	for c := range out {
		x := pcm.ToFloat(in[c])
		wet := d.lines[c].ReadLinear(samples)
		d.lines[c].Write(core.FlushDenormals(x + d.filter[c].ProcessSample(wet)*d.feedback))
		out[c] = pcm.FromFloat(x*(1-d.mix) + wet*d.mix)
	}
	return out
}
