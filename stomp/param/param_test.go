package param

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"
)

type fakeADC struct {
	raw [NumChannels]int
	err [NumChannels]error
}

func (f *fakeADC) ReadRaw(ch int) (int, error) {
	if f.err[ch] != nil {
		return 0, f.err[ch]
	}
	return f.raw[ch], nil
}

func newAcquirer(t *testing.T, adc *fakeADC, opts ...Option) (*Acquirer, *Publisher) {
	t.Helper()
	pub := NewPublisher([NumChannels]float64{})
	a, err := NewAcquirer(adc, pub, opts...)
	if err != nil {
		t.Fatalf("NewAcquirer() error = %v", err)
	}
	return a, pub
}

func requireUnit(t *testing.T, v Vector) {
	t.Helper()
	for i, x := range v.Values {
		if x < 0 || x > 1 || math.IsNaN(x) {
			t.Fatalf("channel %s = %v, want value in [0, 1]", Channel(i), x)
		}
	}
}

func TestNormalizeClamps(t *testing.T) {
	tests := []struct {
		raw  int
		want float64
	}{
		{-1, 0},
		{-40000, 0},
		{0, 0},
		{4095, 1},
		{4096, 1},
		{65535, 1},
		{math.MaxInt32, 1},
	}
	for _, tt := range tests {
		if got := Normalize(tt.raw, DefaultADCMax); got != tt.want {
			t.Fatalf("Normalize(%d) = %v, want %v", tt.raw, got, tt.want)
		}
	}
	if got := Normalize(10, 0); got != 0 {
		t.Fatalf("Normalize with zero full scale = %v, want 0", got)
	}
}

func TestOutOfRangeReadingsStayInUnitRange(t *testing.T) {
	adc := &fakeADC{}
	a, _ := newAcquirer(t, adc, WithPublishThreshold(0))

	r := rand.New(rand.NewPCG(7, 11))
	for range 2000 {
		for ch := range NumChannels {
			adc.raw[ch] = r.IntN(2_000_000) - 1_000_000
		}
		// A disconnected expression jack floats high.
		if r.IntN(3) == 0 {
			adc.raw[Expression] = 0xFFFF
		}
		v, _, err := a.Poll()
		if err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
		requireUnit(t, v)
	}
}

func TestVersionIncrementsPerPublish(t *testing.T) {
	adc := &fakeADC{}
	a, pub := newAcquirer(t, adc, WithPublishThreshold(0))

	for i := 1; i <= 5; i++ {
		adc.raw[Pot0] = i * 100
		v, published, err := a.Poll()
		if err != nil || !published {
			t.Fatalf("Poll() = %v, %v", published, err)
		}
		if v.Version != uint64(i) || pub.Version() != uint64(i) {
			t.Fatalf("version = %d (publisher %d), want %d", v.Version, pub.Version(), i)
		}
	}
}

func TestPublishThreshold(t *testing.T) {
	adc := &fakeADC{raw: [NumChannels]int{2048, 2048, 2048, 0}}
	a, pub := newAcquirer(t, adc, WithSmoothing(0))

	if _, published, _ := a.Poll(); !published {
		t.Fatal("first poll must publish")
	}
	for range 10 {
		if _, published, _ := a.Poll(); published {
			t.Fatal("unchanged input published a new vector")
		}
	}
	if pub.Version() != 1 {
		t.Fatalf("Version() = %d, want 1", pub.Version())
	}

	adc.raw[Pot2] = 3000
	v, published, _ := a.Poll()
	if !published || v.Version != 2 {
		t.Fatalf("change not published: published=%v version=%d", published, v.Version)
	}
	if math.Abs(v.Get(Pot2)-3000.0/4095) > 1e-12 {
		t.Fatalf("Pot2 = %v, want %v", v.Get(Pot2), 3000.0/4095)
	}
}

func TestSmoothingConverges(t *testing.T) {
	adc := &fakeADC{}
	a, _ := newAcquirer(t, adc,
		WithPollInterval(time.Millisecond),
		WithSmoothing(20*time.Millisecond),
		WithPublishThreshold(0),
	)

	// Prime at zero, then step to full scale.
	if _, _, err := a.Poll(); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	adc.raw[Pot1] = DefaultADCMax

	v, _, _ := a.Poll()
	if v.Get(Pot1) <= 0 || v.Get(Pot1) > 0.1 {
		t.Fatalf("after one poll Pot1 = %v, want a small step", v.Get(Pot1))
	}
	for range 200 {
		v, _, _ = a.Poll()
	}
	if v.Get(Pot1) < 0.999 {
		t.Fatalf("after 200 ms Pot1 = %v, want ~1", v.Get(Pot1))
	}
}

func TestFirstPollPrimesWithoutRamp(t *testing.T) {
	adc := &fakeADC{raw: [NumChannels]int{4095, 0, 0, 0}}
	a, _ := newAcquirer(t, adc)
	v, _, _ := a.Poll()
	if v.Get(Pot0) != 1 {
		t.Fatalf("Pot0 after first poll = %v, want 1", v.Get(Pot0))
	}
}

func TestDeglitchRejectsSingleSpike(t *testing.T) {
	adc := &fakeADC{raw: [NumChannels]int{1000, 0, 0, 0}}
	a, _ := newAcquirer(t, adc, WithSmoothing(0), WithDeglitch(true), WithPublishThreshold(0))

	a.Poll()
	a.Poll()
	adc.raw[Pot0] = 4095
	v, _, _ := a.Poll()
	if math.Abs(v.Get(Pot0)-1000.0/4095) > 1e-12 {
		t.Fatalf("spike leaked through: Pot0 = %v", v.Get(Pot0))
	}
	adc.raw[Pot0] = 1000
	v, _, _ = a.Poll()
	if math.Abs(v.Get(Pot0)-1000.0/4095) > 1e-12 {
		t.Fatalf("Pot0 = %v after spike, want %v", v.Get(Pot0), 1000.0/4095)
	}
}

func TestReadErrorKeepsPreviousValue(t *testing.T) {
	errBus := errors.New("i2c nak")
	adc := &fakeADC{raw: [NumChannels]int{4095, 4095, 4095, 4095}}
	a, _ := newAcquirer(t, adc, WithSmoothing(0))
	a.Poll()

	adc.err[Expression] = errBus
	adc.raw[Pot0] = 0
	v, published, err := a.Poll()
	if !errors.Is(err, errBus) {
		t.Fatalf("Poll() error = %v, want wrapped bus error", err)
	}
	if !published || v.Get(Pot0) != 0 {
		t.Fatalf("healthy channel not updated: published=%v Pot0=%v", published, v.Get(Pot0))
	}
	if v.Get(Expression) != 1 {
		t.Fatalf("failed channel = %v, want previous value 1", v.Get(Expression))
	}
}

func TestOverridePickup(t *testing.T) {
	adc := &fakeADC{raw: [NumChannels]int{0, 0, 0, 0}}
	a, _ := newAcquirer(t, adc, WithSmoothing(0), WithPublishThreshold(0))
	a.Poll()

	a.Override(Pot0, 0.5)
	v, _, _ := a.Poll()
	if v.Get(Pot0) != 0.5 || !a.Overridden(Pot0) {
		t.Fatalf("override not applied: Pot0 = %v", v.Get(Pot0))
	}

	// Moving towards the value but not reaching it keeps the override.
	adc.raw[Pot0] = 1000
	v, _, _ = a.Poll()
	if v.Get(Pot0) != 0.5 {
		t.Fatalf("override released early: Pot0 = %v", v.Get(Pot0))
	}

	// Passing through the value hands control back to the pot.
	adc.raw[Pot0] = 3000
	v, _, _ = a.Poll()
	if a.Overridden(Pot0) || math.Abs(v.Get(Pot0)-3000.0/4095) > 1e-12 {
		t.Fatalf("pickup failed: overridden=%v Pot0=%v", a.Overridden(Pot0), v.Get(Pot0))
	}
}

func TestOptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"adc max", WithADCMax(0)},
		{"interval", WithPollInterval(0)},
		{"smoothing", WithSmoothing(-time.Second)},
		{"threshold", WithPublishThreshold(1)},
		{"pickup", WithPickupThreshold(-0.1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAcquirer(&fakeADC{}, NewPublisher([NumChannels]float64{}), tt.opt); err == nil {
				t.Fatal("expected option error")
			}
		})
	}
	if _, err := NewAcquirer(nil, NewPublisher([NumChannels]float64{})); err == nil {
		t.Fatal("expected error for nil reader")
	}
}

func TestPublisherNeverTears(t *testing.T) {
	pub := NewPublisher([NumChannels]float64{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 5000; i++ {
			x := float64(i%1000) / 1000
			pub.Publish([NumChannels]float64{x, x, x, x})
		}
	}()

	var last uint64
	for range 20000 {
		v := pub.Load()
		for _, x := range v.Values[1:] {
			if x != v.Values[0] {
				t.Fatalf("torn vector %v", v.Values)
			}
		}
		if v.Version < last {
			t.Fatalf("version went backwards: %d after %d", v.Version, last)
		}
		last = v.Version
	}
	wg.Wait()
}

func TestChannelNames(t *testing.T) {
	for ch := range Channel(NumChannels) {
		got, err := ParseChannel(ch.String())
		if err != nil || got != ch {
			t.Fatalf("ParseChannel(%q) = %v, %v", ch.String(), got, err)
		}
	}
	if _, err := ParseChannel("pot9"); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}

func BenchmarkPublisherLoad(b *testing.B) {
	pub := NewPublisher([NumChannels]float64{0.1, 0.2, 0.3, 0.4})
	var sum float64
	for i := 0; i < b.N; i++ {
		sum += pub.Load().Values[0]
	}
	_ = sum
}

func TestControlMap(t *testing.T) {
	t.Parallel()

	lin := Control{Name: "mix", Channel: Pot2, Min: -24, Max: 6}
	exp := Control{Name: "rate", Channel: Pot0, Min: 0.1, Max: 4, Exp: true}

	tests := []struct {
		name string
		c    Control
		in   float64
		want float64
	}{
		{"linear low", lin, 0, -24},
		{"linear high", lin, 1, 6},
		{"linear mid", lin, 0.5, -9},
		{"linear clamps", lin, 3, 6},
		{"exp low", exp, 0, 0.1},
		{"exp high", exp, 1, 4},
		{"exp mid", exp, 0.5, math.Sqrt(0.4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Map(tt.in); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Map(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	v := Vector{Values: [NumChannels]float64{0, 0, 1, 0}}
	if got := lin.Value(v); got != 6 {
		t.Fatalf("Value() = %v, want 6", got)
	}
}
