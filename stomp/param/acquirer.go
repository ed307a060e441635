package param

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-stomp/dsp/core"
)

const (
	// DefaultADCMax is the full-scale reading of a 12-bit converter.
	DefaultADCMax = 4095
	// DefaultPollInterval is the slow-loop cadence.
	DefaultPollInterval = time.Millisecond
	// DefaultSmoothing is the EMA time constant.
	DefaultSmoothing = 20 * time.Millisecond
	// DefaultPublishThreshold is the smallest change that publishes a new
	// vector.
	DefaultPublishThreshold = 0.001
	// DefaultPickupThreshold is how close a pot must come to an
	// overridden value to take over again.
	DefaultPickupThreshold = 0.01
)

// Reader supplies raw ADC readings. Out-of-range values are allowed and
// are clamped during normalization.
type Reader interface {
	ReadRaw(ch int) (int, error)
}

// Option configures an Acquirer.
type Option func(*config) error

type config struct {
	adcMax    int
	interval  time.Duration
	smoothing time.Duration
	threshold float64
	pickup    float64
	deglitch  bool
}

func defaultConfig() config {
	return config{
		adcMax:    DefaultADCMax,
		interval:  DefaultPollInterval,
		smoothing: DefaultSmoothing,
		threshold: DefaultPublishThreshold,
		pickup:    DefaultPickupThreshold,
	}
}

// WithADCMax sets the full-scale raw reading.
func WithADCMax(adcMax int) Option {
	return func(cfg *config) error {
		if adcMax <= 0 {
			return fmt.Errorf("param adc max must be > 0: %d", adcMax)
		}
		cfg.adcMax = adcMax
		return nil
	}
}

// WithPollInterval sets the expected interval between Poll calls. It is
// used to derive the smoothing coefficient.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return fmt.Errorf("param poll interval must be > 0: %v", d)
		}
		cfg.interval = d
		return nil
	}
}

// WithSmoothing sets the EMA time constant. Zero disables smoothing.
func WithSmoothing(d time.Duration) Option {
	return func(cfg *config) error {
		if d < 0 {
			return fmt.Errorf("param smoothing must be >= 0: %v", d)
		}
		cfg.smoothing = d
		return nil
	}
}

// WithPublishThreshold sets the minimum change in any channel that
// publishes a new vector. Zero publishes on every poll.
func WithPublishThreshold(threshold float64) Option {
	return func(cfg *config) error {
		if threshold < 0 || threshold >= 1 || math.IsNaN(threshold) {
			return fmt.Errorf("param publish threshold must be in [0, 1): %f", threshold)
		}
		cfg.threshold = threshold
		return nil
	}
}

// WithPickupThreshold sets the pickup tolerance for overridden channels.
func WithPickupThreshold(threshold float64) Option {
	return func(cfg *config) error {
		if threshold < 0 || threshold >= 1 || math.IsNaN(threshold) {
			return fmt.Errorf("param pickup threshold must be in [0, 1): %f", threshold)
		}
		cfg.pickup = threshold
		return nil
	}
}

// WithDeglitch enables a median-of-3 filter ahead of the EMA, which
// rejects single-poll wiper spikes.
func WithDeglitch(enabled bool) Option {
	return func(cfg *config) error {
		cfg.deglitch = enabled
		return nil
	}
}

type channelState struct {
	history  [3]float64
	smoothed float64
	primed   bool
}

type override struct {
	active bool
	value  float64
	from   float64
}

// Acquirer samples the analog inputs on the slow loop and publishes the
// smoothed vector. It is not safe for concurrent use; the published
// snapshots are.
type Acquirer struct {
	in   Reader
	pub  *Publisher
	cfg  config
	coef float64

	channels  [NumChannels]channelState
	overrides [NumChannels]override
	last      [NumChannels]float64
	published bool
}

// NewAcquirer returns an acquirer reading from in and publishing to pub.
func NewAcquirer(in Reader, pub *Publisher, opts ...Option) (*Acquirer, error) {
	if in == nil {
		return nil, errors.New("param: nil reader")
	}
	if pub == nil {
		return nil, errors.New("param: nil publisher")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &Acquirer{
		in:   in,
		pub:  pub,
		cfg:  cfg,
		coef: core.OnePoleCoefficient(cfg.smoothing.Seconds(), 1/cfg.interval.Seconds()),
	}, nil
}

// Normalize maps a raw reading to [0, 1], clamping readings outside
// [0, adcMax] such as a floating expression input.
func Normalize(raw, adcMax int) float64 {
	if adcMax <= 0 {
		return 0
	}
	return core.Unit(float64(raw) / float64(adcMax))
}

// Poll reads every channel once, updates the filters, and publishes a new
// vector when any channel moved by at least the publish threshold. A
// channel whose read fails keeps its previous value; the failures are
// returned joined.
func (a *Acquirer) Poll() (Vector, bool, error) {
	var errs []error
	for ch := range NumChannels {
		raw, err := a.in.ReadRaw(ch)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", Channel(ch), err))
			continue
		}
		a.update(Channel(ch), Normalize(raw, a.cfg.adcMax))
	}

	values := a.Values()
	if !a.changed(values) {
		return a.pub.Load(), false, errors.Join(errs...)
	}

	a.last = values
	a.published = true
	return a.pub.Publish(values), true, errors.Join(errs...)
}

// Values returns the current control values, overrides applied.
func (a *Acquirer) Values() [NumChannels]float64 {
	var out [NumChannels]float64
	for ch := range NumChannels {
		if a.overrides[ch].active {
			out[ch] = a.overrides[ch].value
			continue
		}
		out[ch] = a.channels[ch].smoothed
	}
	return out
}

// Physical returns the smoothed physical reading of a channel.
func (a *Acquirer) Physical(ch Channel) float64 {
	if ch < 0 || int(ch) >= NumChannels {
		return 0
	}
	return a.channels[ch].smoothed
}

// Override pins a channel to value until the physical control is moved
// through it. Used for remote control such as MIDI.
func (a *Acquirer) Override(ch Channel, value float64) {
	if ch < 0 || int(ch) >= NumChannels {
		return
	}
	a.overrides[ch] = override{
		active: true,
		value:  core.Unit(value),
		from:   a.channels[ch].smoothed,
	}
}

// Overridden reports whether a channel is pinned by Override.
func (a *Acquirer) Overridden(ch Channel) bool {
	if ch < 0 || int(ch) >= NumChannels {
		return false
	}
	return a.overrides[ch].active
}

func (a *Acquirer) update(ch Channel, x float64) {
	st := &a.channels[ch]
	if !st.primed {
		st.history = [3]float64{x, x, x}
		st.smoothed = x
		st.primed = true
		return
	}

	if a.cfg.deglitch {
		st.history[0], st.history[1], st.history[2] = st.history[1], st.history[2], x
		x = median3(st.history[0], st.history[1], st.history[2])
	}

	st.smoothed += (x - st.smoothed) * a.coef
	st.smoothed = core.Unit(st.smoothed)

	a.pickup(ch, st.smoothed)
}

func (a *Acquirer) pickup(ch Channel, physical float64) {
	o := &a.overrides[ch]
	if !o.active {
		return
	}
	crossed := (o.from <= o.value && physical >= o.value) ||
		(o.from >= o.value && physical <= o.value)
	if crossed || math.Abs(physical-o.value) < a.cfg.pickup {
		o.active = false
	}
}

func (a *Acquirer) changed(values [NumChannels]float64) bool {
	if !a.published || a.cfg.threshold == 0 {
		return true
	}
	for i, v := range values {
		if math.Abs(v-a.last[i]) >= a.cfg.threshold {
			return true
		}
	}
	return false
}

func median3(a, b, c float64) float64 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		return a
	}
	return b
}
