package effects

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-stomp/dsp/core"
	"github.com/cwbudde/algo-stomp/internal/testutil"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
	"github.com/cwbudde/algo-stomp/stomp/stage"
	"github.com/cwbudde/algo-stomp/stomp/tuner"
)

const testRate = 48000.0

func vec(version uint64, pot0, pot1, pot2, expr float64) param.Vector {
	return param.Vector{Values: [param.NumChannels]float64{pot0, pot1, pot2, expr}, Version: version}
}

type transform interface {
	stage.Transform
	Controls() []param.Control
}

func allEffects(t *testing.T) map[string]transform {
	t.Helper()

	trem, err := NewTremolo(testRate)
	if err != nil {
		t.Fatalf("NewTremolo() error = %v", err)
	}
	del, err := NewDelay(testRate)
	if err != nil {
		t.Fatalf("NewDelay() error = %v", err)
	}
	dist, err := NewDistortion(testRate)
	if err != nil {
		t.Fatalf("NewDistortion() error = %v", err)
	}
	wah, err := NewWah(testRate)
	if err != nil {
		t.Fatalf("NewWah() error = %v", err)
	}
	eq, err := NewEQ(testRate)
	if err != nil {
		t.Fatalf("NewEQ() error = %v", err)
	}
	tap, _ := tuner.NewTap(1024)
	tun, err := NewTuner(tap, false)
	if err != nil {
		t.Fatalf("NewTuner() error = %v", err)
	}
	return map[string]transform{
		"clean":      Clean{},
		"tremolo":    trem,
		"delay":      del,
		"distortion": dist,
		"wah":        wah,
		"eq":         eq,
		"tuner":      tun,
	}
}

func TestCleanIsIdentity(t *testing.T) {
	t.Parallel()

	in := pcm.Frame{-32768, 32767}
	if got := (Clean{}).Transform(in, vec(1, 1, 1, 1, 1)); got != in {
		t.Fatalf("Transform() = %v, want %v", got, in)
	}
}

func TestTremoloZeroDepthIsUnity(t *testing.T) {
	t.Parallel()

	tr, _ := NewTremolo(testRate)
	p := vec(1, 0.5, 0, 1, 0)
	for i := range 4800 {
		in := pcm.Frame{int16(i), int16(-i)}
		if got := tr.Transform(in, p); got != in {
			t.Fatalf("frame %d: Transform() = %v, want %v", i, got, in)
		}
	}
}

func TestTremoloSquareGatesSignal(t *testing.T) {
	t.Parallel()

	tr, err := NewTremolo(testRate, WithTremoloWave(WaveSquare))
	if err != nil {
		t.Fatalf("NewTremolo() error = %v", err)
	}
	p := vec(1, 1, 1, 1, 0)
	in := pcm.Frame{10000, 10000}

	// 4 Hz: the first 6000 frames are the attenuated half.
	var out pcm.Frame
	for range 3000 {
		out = tr.Transform(in, p)
	}
	if out[0] != 0 {
		t.Fatalf("low half output = %v, want silence", out)
	}
	if lvl, ok := tr.LEDLevel(); !ok || lvl > 1e-6 {
		t.Fatalf("LEDLevel() = %v, %v, want ~0", lvl, ok)
	}
	for range 6000 {
		out = tr.Transform(in, p)
	}
	if out != in {
		t.Fatalf("high half output = %v, want %v", out, in)
	}
}

func TestTremoloExpressionAddsDepth(t *testing.T) {
	t.Parallel()

	tr, _ := NewTremolo(testRate, WithTremoloWave(WaveSquare))
	p := vec(1, 1, 0, 1, 1)
	var out pcm.Frame
	for range 3000 {
		out = tr.Transform(pcm.Frame{10000, 10000}, p)
	}
	if out[0] != 0 {
		t.Fatalf("output = %v, want silence with depth from expression", out)
	}
}

func TestTremoloLEDLevelRange(t *testing.T) {
	t.Parallel()

	for _, w := range []Wave{WaveSine, WaveTriangle, WaveSquare} {
		tr, _ := NewTremolo(testRate, WithTremoloWave(w))
		p := vec(1, 1, 0.7, 1, 0.2)
		for range 24000 {
			tr.Transform(pcm.Frame{}, p)
			lvl, _ := tr.LEDLevel()
			if lvl < 0 || lvl > 1 {
				t.Fatalf("%s: LEDLevel() = %v outside [0, 1]", w, lvl)
			}
		}
	}
}

func TestParseWave(t *testing.T) {
	t.Parallel()

	for _, w := range []Wave{WaveSine, WaveTriangle, WaveSquare} {
		got, err := ParseWave(w.String())
		if err != nil || got != w {
			t.Fatalf("ParseWave(%q) = %v, %v", w, got, err)
		}
	}
	if _, err := ParseWave("saw"); err == nil {
		t.Fatal("expected error for unknown wave")
	}
	if _, err := NewTremolo(testRate, WithTremoloWave(Wave(9))); err == nil {
		t.Fatal("expected error for invalid wave")
	}
}

func TestDelayImpulse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr float64
		at   int
	}{
		{"minimum time", 0, 480},
		{"expression adds time", 1, 480 + 24000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := NewDelay(testRate)
			if err != nil {
				t.Fatalf("NewDelay() error = %v", err)
			}
			p := vec(1, 0, 0, 1, tt.expr)
			for i := range tt.at + 10 {
				var in pcm.Frame
				if i == 0 {
					in = pcm.Frame{16384, -16384}
				}
				out := d.Transform(in, p)
				switch i {
				case tt.at:
					if out != (pcm.Frame{16384, -16384}) {
						t.Fatalf("frame %d = %v, want the echo", i, out)
					}
				default:
					if out != (pcm.Frame{}) {
						t.Fatalf("frame %d = %v, want silence", i, out)
					}
				}
			}
		})
	}
}

func TestDelayFeedbackDecays(t *testing.T) {
	t.Parallel()

	d, _ := NewDelay(testRate, WithDelayFilter(20000))
	p := vec(1, 0, 1, 1, 0)
	var peaks []int16
	for i := range 480*4 + 1 {
		var in pcm.Frame
		if i == 0 {
			in = pcm.Frame{20000, 20000}
		}
		out := d.Transform(in, p)
		if i > 0 && i%480 == 0 {
			peaks = append(peaks, out[0])
		}
	}
	for i := 1; i < len(peaks); i++ {
		if peaks[i] >= peaks[i-1] || peaks[i] <= 0 {
			t.Fatalf("echo peaks %v are not decaying", peaks)
		}
	}
	if _, err := NewDelay(testRate, WithDelayFilter(0)); err == nil {
		t.Fatal("expected error for zero filter")
	}
}

func TestDistortionBounded(t *testing.T) {
	t.Parallel()

	for _, mode := range []ClipMode{ClipSoft, ClipHard, ClipFold} {
		d, err := NewDistortion(testRate, WithClipMode(mode))
		if err != nil {
			t.Fatalf("NewDistortion() error = %v", err)
		}
		p := vec(1, 1, 1, 0, 1)
		level := math.Pow(10, -24.0/20)
		for i := range 4800 {
			s := int16(30000 * math.Sin(2*math.Pi*220*float64(i)/testRate))
			out := d.Transform(pcm.Frame{s, s}, p)
			// Clipped to unity, then -24 dB and a little filter overshoot.
			if math.Abs(pcm.ToFloat(out[0])) > level*1.3 {
				t.Fatalf("%s: frame %d = %v out of range", mode, i, out)
			}
			testutil.RequireStereoLinked(t, []pcm.Frame{out})
		}
	}
}

func TestDistortionGainsGlide(t *testing.T) {
	t.Parallel()

	d, _ := NewDistortion(testRate)
	d.Transform(pcm.Frame{}, vec(1, 0, 0.5, 0, 0))
	drive0, level0 := d.Gains()
	testutil.RequireNear(t, "initial drive", drive0, 1, 1e-12)
	testutil.RequireNear(t, "initial level", level0, math.Pow(10, -24.0/20), 1e-12)

	// Full drive and level in one publish: the gains must move gradually.
	p := vec(2, 1, 0.5, 1, 0)
	d.Transform(pcm.Frame{}, p)
	drive1, level1 := d.Gains()
	if drive1 <= drive0 || drive1 > 2*drive0 {
		t.Fatalf("drive jumped from %v to %v in one frame", drive0, drive1)
	}
	if level1 <= level0 || level1 > 2*level0 {
		t.Fatalf("level jumped from %v to %v in one frame", level0, level1)
	}
	for range 4800 {
		d.Transform(pcm.Frame{}, p)
	}
	drive, level := d.Gains()
	testutil.RequireNear(t, "settled drive", drive, 100, 0.01)
	testutil.RequireNear(t, "settled level", level, math.Pow(10, 6.0/20), 1e-4)
}

func TestDistortionSilenceStaysSilent(t *testing.T) {
	t.Parallel()

	d, _ := NewDistortion(testRate)
	p := vec(1, 1, 0.5, 0.8, 1)
	for range 1000 {
		if out := d.Transform(pcm.Frame{}, p); out != (pcm.Frame{}) {
			t.Fatalf("Transform(silence) = %v", out)
		}
	}
}

func TestClipCurves(t *testing.T) {
	t.Parallel()

	for _, x := range []float64{0, 0.1, 0.5, 1, 3} {
		if got, want := softClip(x), math.Tanh(x); math.Abs(got-want) > 0.02 {
			t.Fatalf("softClip(%v) = %v, want ~%v", x, got, want)
		}
		if softClip(-x) != -softClip(x) && math.Abs(softClip(-x)+softClip(x)) > 1e-3 {
			t.Fatalf("softClip not odd at %v", x)
		}
	}

	folds := map[float64]float64{0: 0, 0.5: 0.5, 1: 1, 1.5: 0.5, 2: 0, 3: -1, -1.5: -0.5, 5: 1}
	for in, want := range folds {
		if got := fold(in); math.Abs(got-want) > 1e-12 {
			t.Fatalf("fold(%v) = %v, want %v", in, got, want)
		}
	}

	for _, m := range []ClipMode{ClipSoft, ClipHard, ClipFold} {
		got, err := ParseClipMode(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseClipMode(%q) = %v, %v", m, got, err)
		}
	}
	if _, err := ParseClipMode("fuzz"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestWahFrequencyFollowsControls(t *testing.T) {
	t.Parallel()

	w, _ := NewWah(testRate)
	w.Transform(pcm.Frame{}, vec(1, 0, 0, 1, 0))
	if got := w.Frequency(); math.Abs(got-wahMinHz) > 1e-9 {
		t.Fatalf("Frequency() = %v, want %v", got, wahMinHz)
	}

	p := vec(2, 0.5, 0, 1, 0.5)
	for range 9600 {
		w.Transform(pcm.Frame{}, p)
	}
	if got := w.Frequency(); math.Abs(got-wahMaxHz) > 1 {
		t.Fatalf("Frequency() = %v, want ~%v", got, wahMaxHz)
	}
}

func TestWahPassesCenterFrequency(t *testing.T) {
	t.Parallel()

	w, _ := NewWah(testRate)
	// Pot0 such that the center is 1 kHz.
	pos := math.Log(1000/wahMinHz) / math.Log(wahMaxHz/wahMinHz)
	p := vec(1, pos, 0, 1, 0)
	in := testutil.Sine(1000, 16000.0/32768, testRate, 9600)
	out := make([]pcm.Frame, len(in))
	for i, f := range in {
		out[i] = w.Transform(f, p)
	}
	testutil.RequireNear(t, "peak at center", testutil.Peak(out[4800:]), 16000.0/32768, 0.03)
}

func eqOut(e *EQ, freq, amp float64, p param.Vector) []pcm.Frame {
	in := testutil.Sine(freq, amp, testRate, 9600)
	out := make([]pcm.Frame, len(in))
	for i, f := range in {
		out[i] = e.Transform(f, p)
	}
	return out[4800:]
}

func TestEQFlatIsUnity(t *testing.T) {
	t.Parallel()

	e, _ := NewEQ(testRate)
	// Knobs centered, level at 0 dB.
	p := vec(1, 0.5, 0.5, 0.5, 0.8)
	for _, freq := range []float64{100, 566, 1000, 3200} {
		e.Reset()
		testutil.RequireNear(t, "flat peak", testutil.Peak(eqOut(e, freq, 0.5, p)), 0.5, 0.01)
	}
	if g := e.Gains(); g != [EQBands]float64{} {
		t.Fatalf("Gains() = %v, want zeros", g)
	}
}

func TestEQBoostsAndCutsBands(t *testing.T) {
	t.Parallel()

	boost := 1 / core.DBToLinear(-eqMaxDB)
	tests := []struct {
		name string
		freq float64
		amp  float64
		p    param.Vector
		want float64
	}{
		{"low boost", 100, 0.05, vec(1, 1, 0.5, 0.5, 0.8), 0.05 * boost},
		{"mid boost", 566, 0.05, vec(1, 0.5, 1, 0.5, 0.8), 0.05 * boost},
		{"high cut", 3200, 0.5, vec(1, 0.5, 0.5, 0, 0.8), 0.5 / boost},
		// +12 dB band against -12 dB level.
		{"level", 3200, 0.05, vec(1, 0.5, 0.5, 1, 0.4), 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, _ := NewEQ(testRate)
			got := testutil.Peak(eqOut(e, tt.freq, tt.amp, tt.p))
			testutil.RequireNear(t, tt.name, got, tt.want, tt.want*0.05)
		})
	}
}

func TestEQLevelGlides(t *testing.T) {
	t.Parallel()

	e, _ := NewEQ(testRate)
	e.Transform(pcm.Frame{}, vec(1, 0.5, 0.5, 0.5, 0))
	testutil.RequireNear(t, "initial level", e.Level(), core.DBToLinear(-24), 1e-9)
	e.Transform(pcm.Frame{}, vec(2, 0.5, 0.5, 0.5, 1))
	if l := e.Level(); l <= core.DBToLinear(-24) || l >= 2*core.DBToLinear(-24) {
		t.Fatalf("level after one frame = %v, want a small step up", l)
	}
	for range 9600 {
		e.Transform(pcm.Frame{}, vec(2, 0.5, 0.5, 0.5, 1))
	}
	testutil.RequireNear(t, "settled level", e.Level(), core.DBToLinear(6), 1e-4)
}

func TestEQBandsOption(t *testing.T) {
	t.Parallel()

	want := [EQBands]float64{200, 800, 3200}
	e, err := NewEQ(testRate, WithEQBands(want))
	if err != nil {
		t.Fatalf("NewEQ() error = %v", err)
	}
	if e.Bands() != want {
		t.Fatalf("Bands() = %v, want %v", e.Bands(), want)
	}
	for _, bad := range [][EQBands]float64{{0, 800, 3200}, {100, 800, 24000}, {100, math.NaN(), 3200}} {
		if _, err := NewEQ(testRate, WithEQBands(bad)); err == nil {
			t.Fatalf("WithEQBands(%v) expected error", bad)
		}
	}
}

func TestTunerFeedsTap(t *testing.T) {
	t.Parallel()

	tap, _ := tuner.NewTap(4)
	tn, err := NewTuner(tap, false)
	if err != nil {
		t.Fatalf("NewTuner() error = %v", err)
	}
	in := pcm.Frame{123, -5}
	if got := tn.Transform(in, param.Vector{}); got != in {
		t.Fatalf("Transform() = %v, want passthrough", got)
	}
	muted, _ := NewTuner(tap, true)
	if got := muted.Transform(pcm.Frame{7, 7}, param.Vector{}); got != (pcm.Frame{}) {
		t.Fatalf("muted Transform() = %v", got)
	}
	dst := make([]int16, 2)
	tap.Snapshot(dst)
	if dst[0] != 123 || dst[1] != 7 {
		t.Fatalf("tap = %v, want [123 7]", dst)
	}
	if _, err := NewTuner(nil, false); err == nil {
		t.Fatal("expected error for nil tap")
	}
}

func TestResetIsDeterministic(t *testing.T) {
	t.Parallel()

	for name, fx := range allEffects(t) {
		run := func() []pcm.Frame {
			out := make([]pcm.Frame, 2000)
			for i := range out {
				s := int16(12000 * math.Sin(float64(i)*0.05))
				out[i] = fx.Transform(pcm.Frame{s, -s}, vec(uint64(i/500+1), 0.3, 0.6, 0.8, 0.1))
			}
			return out
		}
		if r, ok := fx.(stage.Resetter); ok {
			r.Reset()
		}
		first := run()
		if r, ok := fx.(stage.Resetter); ok {
			r.Reset()
		}
		second := run()
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("%s: frame %d differs after Reset: %v vs %v", name, i, first[i], second[i])
			}
		}
	}
}

func TestTransformDoesNotAllocate(t *testing.T) {
	for name, fx := range allEffects(t) {
		p := vec(1, 0.4, 0.4, 0.4, 0.4)
		allocs := testing.AllocsPerRun(1000, func() {
			fx.Transform(pcm.Frame{1000, -1000}, p)
		})
		if allocs != 0 {
			t.Fatalf("%s: Transform() allocates %v times", name, allocs)
		}
	}
}

func TestControlsUseDistinctChannels(t *testing.T) {
	t.Parallel()

	for name, fx := range allEffects(t) {
		seen := map[param.Channel]bool{}
		for _, c := range fx.Controls() {
			if seen[c.Channel] {
				t.Fatalf("%s: channel %s used twice", name, c.Channel)
			}
			seen[c.Channel] = true
		}
	}
}

func TestConstructorsRejectBadRate(t *testing.T) {
	t.Parallel()

	if _, err := NewTremolo(0); err == nil {
		t.Fatal("NewTremolo(0) expected error")
	}
	if _, err := NewDelay(math.NaN()); err == nil {
		t.Fatal("NewDelay(NaN) expected error")
	}
	if _, err := NewDistortion(-1); err == nil {
		t.Fatal("NewDistortion(-1) expected error")
	}
	if _, err := NewWah(math.Inf(1)); err == nil {
		t.Fatal("NewWah(Inf) expected error")
	}
	if _, err := NewEQ(0); err == nil {
		t.Fatal("NewEQ(0) expected error")
	}
}

func BenchmarkTransform(b *testing.B) {
	trem, _ := NewTremolo(testRate)
	del, _ := NewDelay(testRate)
	dist, _ := NewDistortion(testRate)
	wah, _ := NewWah(testRate)
	eq, _ := NewEQ(testRate)
	for name, fx := range map[string]stage.Transform{"tremolo": trem, "delay": del, "distortion": dist, "wah": wah, "eq": eq} {
		b.Run(name, func(b *testing.B) {
			p := vec(1, 0.4, 0.4, 0.4, 0.4)
			in := pcm.Frame{1000, -1000}
			for b.Loop() {
				in = fx.Transform(in, p)
			}
		})
	}
}
