package effects

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-stomp/dsp/biquad"
	"github.com/cwbudde/algo-stomp/dsp/core"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
	"github.com/meko-christian/algo-approx"
)

// ClipMode selects the distortion curve.
type ClipMode int

const (
	ClipSoft ClipMode = iota
	ClipHard
	ClipFold
)

func (m ClipMode) String() string {
	switch m {
	case ClipSoft:
		return "soft"
	case ClipHard:
		return "hard"
	case ClipFold:
		return "fold"
	default:
		return fmt.Sprintf("ClipMode(%d)", int(m))
	}
}

// ParseClipMode parses a clip mode name.
func ParseClipMode(s string) (ClipMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "soft":
		return ClipSoft, nil
	case "hard":
		return ClipHard, nil
	case "fold":
		return ClipFold, nil
	default:
		return 0, fmt.Errorf("unknown clip mode %q", s)
	}
}

// distortionGlideMs smooths drive and level changes.
const distortionGlideMs = 10.0

var distortionControls = []param.Control{
	{Name: "drive", Channel: param.Pot0, Min: 0, Max: 40, Unit: "dB"},
	{Name: "tone", Channel: param.Pot1, Min: 500, Max: 12000, Unit: "Hz", Exp: true},
	{Name: "level", Channel: param.Pot2, Min: -24, Max: 6, Unit: "dB"},
	{Name: "drive+", Channel: param.Expression, Min: 0, Max: 20, Unit: "dB"},
}

// DistortionOption configures a Distortion.
type DistortionOption func(*Distortion) error

// WithClipMode selects the distortion curve.
func WithClipMode(m ClipMode) DistortionOption {
	return func(d *Distortion) error {
		if m < ClipSoft || m > ClipFold {
			return fmt.Errorf("distortion mode is invalid: %d", m)
		}
		d.mode = m
		return nil
	}
}

// Distortion is a drive stage followed by a tone low-pass and an output
// level. The expression channel adds drive.
type Distortion struct {
	sampleRate float64
	mode       ClipMode

	tone [pcm.Channels]*biquad.Section

	gate        versionGate
	driveTarget float64
	levelTarget float64
	drive       glide
	level       glide
}

// NewDistortion returns a distortion for the given sample rate.
func NewDistortion(sampleRate float64, opts ...DistortionOption) (*Distortion, error) {
	if err := validateSampleRate("distortion", sampleRate); err != nil {
		return nil, err
	}
	d := &Distortion{
		sampleRate: sampleRate,
		drive:      newGlide(distortionGlideMs, sampleRate),
		level:      newGlide(distortionGlideMs, sampleRate),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	for c := range d.tone {
		d.tone[c] = biquad.NewSection(biquad.Identity())
	}
	return d, nil
}

// Controls returns the distortion's controls.
func (d *Distortion) Controls() []param.Control { return distortionControls }

// Mode returns the clip mode.
func (d *Distortion) Mode() ClipMode { return d.mode }

// Reset clears the tone filters.
func (d *Distortion) Reset() {
	for _, s := range d.tone {
		s.Reset()
	}
	d.gate.reset()
	d.drive.reset()
	d.level.reset()
}

// Gains returns the current, possibly gliding, linear drive and level.
func (d *Distortion) Gains() (drive, level float64) { return d.drive.value, d.level.value }

// Transform implements stage.Transform.
func (d *Distortion) Transform(in pcm.Frame, p param.Vector) pcm.Frame {
	if d.gate.changed(p) {
		d.driveTarget = core.DBToLinear(distortionControls[0].Value(p) + distortionControls[3].Value(p))
		d.levelTarget = core.DBToLinear(distortionControls[2].Value(p))
		coeffs := biquad.Lowpass(distortionControls[1].Value(p), math.Sqrt2/2, d.sampleRate)
		for _, s := range d.tone {
			s.SetCoefficients(coeffs)
		}
	}

	drive := d.drive.next(d.driveTarget)
	level := d.level.next(d.levelTarget)

	var out pcm.Frame
	for c := range out {
		y := d.shape(pcm.ToFloat(in[c]) * drive)
		out[c] = pcm.FromFloat(d.tone[c].ProcessSample(y) * level)
	}
	return out
}

func (d *Distortion) shape(x float64) float64 {
	switch d.mode {
	case ClipHard:
		return core.Clamp(x, -1, 1)
	case ClipFold:
		return fold(x)
	default:
		return softClip(x)
	}
}

// softClip is tanh built on a fast exponential.
func softClip(x float64) float64 {
	x = core.Clamp(x, -10, 10)
	return 1 - 2/(approx.FastExp(2*x)+1)
}

// fold reflects x back into [-1, 1].
func fold(x float64) float64 {
	// Triangle wave with period 4 and unit amplitude.
	x = math.Mod(x+1, 4)
	if x < 0 {
		x += 4
	}
	if x > 2 {
		x = 4 - x
	}
	return x - 1
}
