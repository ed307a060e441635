package core

import "math"

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// Unit clamps value to [0, 1]. NaN maps to 0.
func Unit(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}

	return Clamp(value, 0, 1)
}

// MapRange maps a normalized control value in [0, 1] onto [lo, hi].
// The input is clamped first.
func MapRange(value, lo, hi float64) float64 {
	return lo + Unit(value)*(hi-lo)
}

// MapExp maps [0, 1] onto [lo, hi] on a logarithmic curve, for
// frequency and time controls. lo and hi must be > 0.
func MapExp(value, lo, hi float64) float64 {
	return lo * math.Pow(hi/lo, Unit(value))
}

// FlushDenormals converts tiny denormal-like values to exact zero.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(linear)
}

// OnePoleCoefficient returns the smoothing coefficient of a one-pole
// low-pass with time constant tau updated at rate Hz. The result is in
// [0, 1]; tau <= 0 yields 1 (no smoothing).
func OnePoleCoefficient(tauSeconds, rate float64) float64 {
	if tauSeconds <= 0 || rate <= 0 {
		return 1
	}

	return Unit(1 - math.Exp(-1/(tauSeconds*rate)))
}
