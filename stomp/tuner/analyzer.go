package tuner

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
	"github.com/meko-christian/algo-approx"

	"github.com/cwbudde/algo-stomp/dsp/window"
)

const (
	// DefaultWindow is the analysis length in samples.
	DefaultWindow = 4096

	// LevelAttack opens the gate when the relative peak level exceeds it.
	LevelAttack = 0.01
	// LevelRelease closes the gate when the relative peak level drops
	// below it.
	LevelRelease = 0.002
	// Cutoff is the fraction of the spectrum's range below which bins are
	// ignored.
	Cutoff = 0.25
)

// Reading is one analysis result.
type Reading struct {
	Active    bool
	Level     float64
	RMS       float64
	Frequency float64
	Note      int
	Cents     float64
}

// Name returns the note name, or "-" when the gate is closed.
func (r Reading) Name() string {
	if !r.Active || r.Frequency <= 0 {
		return "-"
	}
	return NoteName(r.Note)
}

// Option configures an Analyzer.
type Option func(*analyzerConfig) error

type analyzerConfig struct {
	window int
	shape  window.Type
	offset float64
}

// WithWindow sets the analysis length, a power of two >= 256.
func WithWindow(n int) Option {
	return func(cfg *analyzerConfig) error {
		if n < 256 || n&(n-1) != 0 {
			return fmt.Errorf("tuner window must be a power of two >= 256: %d", n)
		}
		cfg.window = n
		return nil
	}
}

// WithShape selects the analysis window function. The default is Hann.
func WithShape(t window.Type) Option {
	return func(cfg *analyzerConfig) error {
		if _, err := window.Generate(t, 1); err != nil {
			return err
		}
		cfg.shape = t
		return nil
	}
}

// WithOffset adds a calibration offset in Hz to every estimate.
func WithOffset(hz float64) Option {
	return func(cfg *analyzerConfig) error {
		if math.IsNaN(hz) || math.IsInf(hz, 0) {
			return fmt.Errorf("tuner offset must be finite: %f", hz)
		}
		cfg.offset = hz
		return nil
	}
}

// Analyzer estimates pitch from a Tap. Update must be called from one
// goroutine; Latest may be called from any.
type Analyzer struct {
	tap        *Tap
	sampleRate float64
	n          int
	offset     float64

	plan     *algofft.Plan[complex128]
	coeffs   []float64
	raw      []int16
	samples  []float64
	spectrum []complex128
	re, im   []float64
	power    []float64

	active  bool
	latest  atomic.Pointer[Reading]
	updates atomic.Uint64
}

// NewAnalyzer returns an analyzer reading from tap.
func NewAnalyzer(tap *Tap, sampleRate float64, opts ...Option) (*Analyzer, error) {
	if tap == nil {
		return nil, errors.New("tuner: nil tap")
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("tuner sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := analyzerConfig{window: DefaultWindow, shape: window.TypeHann}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.window > tap.Size() {
		return nil, fmt.Errorf("tuner window %d exceeds tap size %d", cfg.window, tap.Size())
	}

	plan, err := algofft.NewPlan64(cfg.window)
	if err != nil {
		return nil, fmt.Errorf("tuner: failed to create FFT plan: %w", err)
	}

	n := cfg.window
	coeffs, err := window.Generate(cfg.shape, n, window.WithPeriodic())
	if err != nil {
		return nil, err
	}
	a := &Analyzer{
		tap:        tap,
		sampleRate: sampleRate,
		n:          n,
		offset:     cfg.offset,
		plan:       plan,
		coeffs:     coeffs,
		raw:        make([]int16, n),
		samples:    make([]float64, n),
		spectrum:   make([]complex128, n),
		re:         make([]float64, n/2),
		im:         make([]float64, n/2),
		power:      make([]float64, n/2),
	}
	a.latest.Store(&Reading{})
	return a, nil
}

// Window returns the analysis length.
func (a *Analyzer) Window() int { return a.n }

// Latest returns the most recent reading.
func (a *Analyzer) Latest() Reading { return *a.latest.Load() }

// Updates returns how many analyses ran.
func (a *Analyzer) Updates() uint64 { return a.updates.Load() }

// Update analyzes the newest window and publishes the reading.
func (a *Analyzer) Update() (Reading, error) {
	a.tap.Snapshot(a.raw)

	var sum, peak, sq float64
	for i, s := range a.raw {
		v := float64(s) / 32768
		a.samples[i] = v
		sum += v
		sq += v * v
		peak = max(peak, v)
	}
	mean := sum / float64(a.n)
	level := min(max(peak-mean, 0), 1)
	rms := approx.FastSqrt(sq / float64(a.n))

	switch {
	case !a.active && level > LevelAttack:
		a.active = true
	case a.active && level < LevelRelease:
		a.active = false
	}

	r := Reading{Active: a.active, Level: level, RMS: rms}
	if a.active {
		freq, err := a.estimate(mean)
		if err != nil {
			return Reading{}, err
		}
		if freq > 0 {
			r.Frequency = freq
			r.Note, r.Cents = Nearest(freq)
		}
	}

	a.latest.Store(&r)
	a.updates.Add(1)
	return r, nil
}

func (a *Analyzer) estimate(mean float64) (float64, error) {
	for i := range a.samples {
		a.samples[i] -= mean
	}
	vecmath.MulBlockInPlace(a.samples, a.coeffs)
	for i, v := range a.samples {
		a.spectrum[i] = complex(v, 0)
	}
	if err := a.plan.Forward(a.spectrum, a.spectrum); err != nil {
		return 0, fmt.Errorf("tuner: forward FFT: %w", err)
	}

	half := a.n / 2
	for i := range half {
		a.re[i] = real(a.spectrum[i])
		a.im[i] = imag(a.spectrum[i])
	}
	vecmath.Power(a.power, a.re, a.im)
	a.power[0] = 0

	lo, hi := a.power[0], a.power[0]
	for _, p := range a.power {
		lo = min(lo, p)
		hi = max(hi, p)
	}
	if hi <= lo {
		return 0, nil
	}
	threshold := lo + (hi-lo)*Cutoff

	start, end := largestArea(a.power, threshold)
	if start == end {
		return 0, nil
	}

	var weighted, total float64
	for i := start; i < end; i++ {
		weighted += float64(i) * a.power[i]
		total += a.power[i]
	}
	index := weighted / total

	return index*a.sampleRate/float64(a.n) + a.offset, nil
}

// largestArea returns the bounds [start, end) of the contiguous run of
// bins above threshold with the most energy.
func largestArea(power []float64, threshold float64) (start, end int) {
	var best float64
	runStart, runSum := -1, 0.0
	for i := 0; i <= len(power); i++ {
		if i < len(power) && power[i] > threshold {
			if runStart < 0 {
				runStart, runSum = i, 0
			}
			runSum += power[i]
			continue
		}
		if runStart >= 0 {
			if runSum > best {
				best, start, end = runSum, runStart, i
			}
			runStart = -1
		}
	}
	return start, end
}
