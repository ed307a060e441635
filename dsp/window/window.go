// Package window generates cosine-sum analysis windows.
package window

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
	TypeBlackmanHarris
	TypeFlatTop
)

// Cosine-sum terms, alternating in sign from a0.
var terms = map[Type][]float64{
	TypeRectangular: {1},
	TypeHann:        {0.5, 0.5},
	TypeHamming:     {0.54, 0.46},
	TypeBlackman:    {0.42, 0.5, 0.08},
	TypeBlackmanHarris: {
		0.35875, 0.48829, 0.14128, 0.01168,
	},
	TypeFlatTop: {
		0.21557895, 0.41663158, 0.277263158, 0.083578947, 0.006947368,
	},
}

var names = map[Type]string{
	TypeRectangular:    "rectangular",
	TypeHann:           "hann",
	TypeHamming:        "hamming",
	TypeBlackman:       "blackman",
	TypeBlackmanHarris: "blackman-harris",
	TypeFlatTop:        "flattop",
}

func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType maps a window name back to its Type.
func ParseType(name string) (Type, error) {
	for t, n := range names {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("window: unknown type %q", name)
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic selects the periodic form used for FFT framing instead of
// the symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns window coefficients of the given length.
func Generate(t Type, length int, opts ...Option) ([]float64, error) {
	a, ok := terms[t]
	if !ok {
		return nil, fmt.Errorf("window: unknown type %d", int(t))
	}
	if length <= 0 {
		return nil, fmt.Errorf("window: length must be > 0: %d", length)
	}
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, length)
	if length == 1 {
		out[0] = 1
		return out, nil
	}
	span := float64(length - 1)
	if cfg.periodic {
		span = float64(length)
	}
	for i := range out {
		x := 2 * math.Pi * float64(i) / span
		v, sign := 0.0, 1.0
		for k, ak := range a {
			v += sign * ak * math.Cos(float64(k)*x)
			sign = -sign
		}
		out[i] = v
	}
	return out, nil
}

// Apply multiplies buf in place by coeffs.
func Apply(buf, coeffs []float64) error {
	if len(buf) != len(coeffs) {
		return fmt.Errorf("window: length mismatch: %d vs %d", len(buf), len(coeffs))
	}
	vecmath.MulBlockInPlace(buf, coeffs)
	return nil
}

// CoherentGain returns the mean coefficient, the amplitude scale a window
// applies to a bin-centred tone.
func CoherentGain(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}
	var sum float64
	for _, c := range coeffs {
		sum += c
	}
	return sum / float64(len(coeffs))
}

// EquivalentNoiseBandwidth returns the ENBW in bins.
func EquivalentNoiseBandwidth(coeffs []float64) float64 {
	var sum, sq float64
	for _, c := range coeffs {
		sum += c
		sq += c * c
	}
	if sum == 0 {
		return 0
	}
	return float64(len(coeffs)) * sq / (sum * sum)
}
