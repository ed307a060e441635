package effects

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/cwbudde/algo-stomp/dsp/core"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

// Wave is an LFO shape.
type Wave int

const (
	WaveSine Wave = iota
	WaveTriangle
	WaveSquare
)

func (w Wave) String() string {
	switch w {
	case WaveSine:
		return "sine"
	case WaveTriangle:
		return "triangle"
	case WaveSquare:
		return "square"
	default:
		return fmt.Sprintf("Wave(%d)", int(w))
	}
}

// ParseWave parses a wave name.
func ParseWave(s string) (Wave, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sine":
		return WaveSine, nil
	case "triangle", "tri":
		return WaveTriangle, nil
	case "square":
		return WaveSquare, nil
	default:
		return 0, fmt.Errorf("unknown wave %q", s)
	}
}

// lfo returns the unipolar value of wave w at phase in [0, 1).
func lfo(w Wave, phase float64) float64 {
	switch w {
	case WaveTriangle:
		if phase < 0.5 {
			return 2 * phase
		}
		return 2 - 2*phase
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return 0
	default:
		return 0.5 - 0.5*math.Cos(2*math.Pi*phase)
	}
}

var tremoloControls = []param.Control{
	{Name: "rate", Channel: param.Pot0, Min: 0.1, Max: 4, Unit: "Hz", Exp: true},
	{Name: "depth", Channel: param.Pot1, Min: 0, Max: 1},
	{Name: "mix", Channel: param.Pot2, Min: 0, Max: 1},
	{Name: "depth+", Channel: param.Expression, Min: 0, Max: 1},
}

const tremoloSmoothingMs = 5.0

// TremoloOption configures a Tremolo.
type TremoloOption func(*Tremolo) error

// WithTremoloWave selects the LFO shape.
func WithTremoloWave(w Wave) TremoloOption {
	return func(t *Tremolo) error {
		if w < WaveSine || w > WaveSquare {
			return fmt.Errorf("tremolo wave is invalid: %d", w)
		}
		t.wave = w
		return nil
	}
}

// Tremolo modulates the amplitude of both channels with a shared LFO.
// The expression channel adds to the depth knob.
type Tremolo struct {
	sampleRate float64
	wave       Wave

	gate  versionGate
	step  float64
	depth float64
	mix   float64

	phase float64
	gain  glide
	level atomic.Uint64
}

// NewTremolo returns a tremolo for the given sample rate.
func NewTremolo(sampleRate float64, opts ...TremoloOption) (*Tremolo, error) {
	if err := validateSampleRate("tremolo", sampleRate); err != nil {
		return nil, err
	}
	t := &Tremolo{
		sampleRate: sampleRate,
		gain:       newGlide(tremoloSmoothingMs, sampleRate),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	t.Reset()
	return t, nil
}

// Controls returns the tremolo's controls.
func (t *Tremolo) Controls() []param.Control { return tremoloControls }

// Wave returns the LFO shape.
func (t *Tremolo) Wave() Wave { return t.wave }

// Reset restarts the LFO.
func (t *Tremolo) Reset() {
	t.gate.reset()
	t.gain.reset()
	t.phase = 0
	t.level.Store(math.Float64bits(1))
}

// LEDLevel returns the current modulation gain in [0, 1].
func (t *Tremolo) LEDLevel() (float64, bool) {
	return math.Float64frombits(t.level.Load()), true
}

// Transform implements stage.Transform.
func (t *Tremolo) Transform(in pcm.Frame, p param.Vector) pcm.Frame {
	if t.gate.changed(p) {
		t.step = tremoloControls[0].Value(p) / t.sampleRate
		t.depth = core.Unit(tremoloControls[1].Value(p) + tremoloControls[3].Value(p))
		t.mix = tremoloControls[2].Value(p)
	}

	g := t.gain.next(1 - t.depth*lfo(t.wave, t.phase))
	t.level.Store(math.Float64bits(g))

	t.phase += t.step
	if t.phase >= 1 {
		t.phase -= 1
	}

	gain := 1 - t.mix + t.mix*g
	var out pcm.Frame
	for c := range out {
		out[c] = pcm.FromFloat(pcm.ToFloat(in[c]) * gain)
	}
	return out
}
