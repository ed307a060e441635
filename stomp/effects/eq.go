package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-stomp/dsp/biquad"
	"github.com/cwbudde/algo-stomp/dsp/core"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

// EQBands is the number of peaking bands in the graphic EQ.
const EQBands = 3

const (
	eqMaxDB   = 12.0
	eqGlideMs = 10.0
)

// DefaultEQBands are the band centers in Hz, spaced evenly in log
// frequency across 100 Hz to 3.2 kHz.
var DefaultEQBands = [EQBands]float64{100, 566, 3200}

var eqQ = math.Sqrt2 / 2

var eqControls = []param.Control{
	{Name: "low", Channel: param.Pot0, Min: -eqMaxDB, Max: eqMaxDB, Unit: "dB"},
	{Name: "mid", Channel: param.Pot1, Min: -eqMaxDB, Max: eqMaxDB, Unit: "dB"},
	{Name: "high", Channel: param.Pot2, Min: -eqMaxDB, Max: eqMaxDB, Unit: "dB"},
	{Name: "level", Channel: param.Expression, Min: -24, Max: 6, Unit: "dB"},
}

// EQOption configures an EQ.
type EQOption func(*EQ) error

// WithEQBands sets the band center frequencies in Hz. Each must lie
// below Nyquist.
func WithEQBands(freqs [EQBands]float64) EQOption {
	return func(e *EQ) error {
		for _, f := range freqs {
			if f <= 0 || f >= e.sampleRate/2 || math.IsNaN(f) {
				return fmt.Errorf("eq band must be in (0, %g): %f", e.sampleRate/2, f)
			}
		}
		e.freqs = freqs
		return nil
	}
}

// EQ is a graphic equalizer: peaking sections with a fixed Q, one per
// knob, followed by an output level on the expression channel.
type EQ struct {
	sampleRate float64
	freqs      [EQBands]float64

	sections [EQBands][pcm.Channels]*biquad.Section
	gains    [EQBands]float64

	gate        versionGate
	levelTarget float64
	level       glide
}

// NewEQ returns a graphic EQ for the given sample rate.
func NewEQ(sampleRate float64, opts ...EQOption) (*EQ, error) {
	if err := validateSampleRate("eq", sampleRate); err != nil {
		return nil, err
	}
	e := &EQ{
		sampleRate: sampleRate,
		freqs:      DefaultEQBands,
		level:      newGlide(eqGlideMs, sampleRate),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	for b := range e.sections {
		for c := range e.sections[b] {
			e.sections[b][c] = biquad.NewSection(biquad.Identity())
		}
	}
	return e, nil
}

// Controls returns the EQ's controls.
func (e *EQ) Controls() []param.Control { return eqControls }

// Bands returns the band center frequencies.
func (e *EQ) Bands() [EQBands]float64 { return e.freqs }

// Gains returns the band gains in dB from the last parameter vector.
func (e *EQ) Gains() [EQBands]float64 { return e.gains }

// Level returns the current, possibly gliding, linear output level.
func (e *EQ) Level() float64 { return e.level.value }

// Reset clears the filters.
func (e *EQ) Reset() {
	for b := range e.sections {
		for _, s := range e.sections[b] {
			s.Reset()
		}
	}
	e.gate.reset()
	e.level.reset()
}

// Transform implements stage.Transform.
func (e *EQ) Transform(in pcm.Frame, p param.Vector) pcm.Frame {
	if e.gate.changed(p) {
		for b := range e.sections {
			e.gains[b] = eqControls[b].Value(p)
			coeffs := biquad.Peak(e.freqs[b], e.gains[b], eqQ, e.sampleRate)
			for _, s := range e.sections[b] {
				s.SetCoefficients(coeffs)
			}
		}
		e.levelTarget = core.DBToLinear(eqControls[3].Value(p))
	}

	level := e.level.next(e.levelTarget)

	var out pcm.Frame
	for c := range out {
		y := pcm.ToFloat(in[c])
		for b := range e.sections {
			y = e.sections[b][c].ProcessSample(y)
		}
		out[c] = pcm.FromFloat(y * level)
	}
	return out
}
