package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-stomp/dsp/core"
	"github.com/cwbudde/algo-stomp/stomp/param"
)

// versionGate reports when a new parameter vector arrives.
type versionGate struct {
	version uint64
	primed  bool
}

func (g *versionGate) changed(p param.Vector) bool {
	if g.primed && p.Version == g.version {
		return false
	}
	g.primed = true
	g.version = p.Version
	return true
}

func (g *versionGate) reset() { g.primed = false }

// glide is a one-pole smoother that jumps to its first target.
type glide struct {
	coef   float64
	value  float64
	primed bool
}

func newGlide(ms, sampleRate float64) glide {
	return glide{coef: core.OnePoleCoefficient(ms/1000, sampleRate)}
}

func (g *glide) next(target float64) float64 {
	if !g.primed {
		g.value, g.primed = target, true
		return target
	}
	g.value += (target - g.value) * g.coef
	return g.value
}

func (g *glide) settled(target, eps float64) bool {
	return g.primed && math.Abs(target-g.value) <= eps
}

func (g *glide) reset() { g.primed = false }

func validateSampleRate(name string, sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%s sample rate must be > 0 and finite: %f", name, sampleRate)
	}
	return nil
}
