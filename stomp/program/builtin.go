package program

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-stomp/stomp/effects"
)

// Built-in program names.
const (
	Clean      = "clean"
	Tremolo    = "tremolo"
	Delay      = "delay"
	Distortion = "distortion"
	Wah        = "wah"
	EQ         = "eq"
	Tuner      = "tuner"
)

// Builtin returns a registry holding the built-in programs.
func Builtin() *Registry {
	r := NewRegistry()
	r.MustRegister(Clean, newClean)
	r.MustRegister(Tremolo, newTremolo)
	r.MustRegister(Delay, newDelay)
	r.MustRegister(Distortion, newDistortion)
	r.MustRegister(Wah, newWah)
	r.MustRegister(EQ, newEQ)
	r.MustRegister(Tuner, newTuner)
	return r
}

func newClean(ctx Context) (Program, error) {
	if err := ctx.checkOptions(); err != nil {
		return nil, err
	}
	return effects.Clean{}, nil
}

func newTremolo(ctx Context) (Program, error) {
	if err := ctx.checkOptions("wave"); err != nil {
		return nil, err
	}
	wave, err := effects.ParseWave(ctx.Option("wave", "sine"))
	if err != nil {
		return nil, err
	}
	t, err := effects.NewTremolo(ctx.SampleRate, effects.WithTremoloWave(wave))
	if err != nil {
		return nil, err
	}
	return t, nil
}

func newDelay(ctx Context) (Program, error) {
	if err := ctx.checkOptions("filter_hz"); err != nil {
		return nil, err
	}
	var opts []effects.DelayOption
	if v, ok := ctx.Options["filter_hz"]; ok {
		hz, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("filter_hz: %w", err)
		}
		opts = append(opts, effects.WithDelayFilter(hz))
	}
	d, err := effects.NewDelay(ctx.SampleRate, opts...)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func newDistortion(ctx Context) (Program, error) {
	if err := ctx.checkOptions("mode"); err != nil {
		return nil, err
	}
	mode, err := effects.ParseClipMode(ctx.Option("mode", "soft"))
	if err != nil {
		return nil, err
	}
	d, err := effects.NewDistortion(ctx.SampleRate, effects.WithClipMode(mode))
	if err != nil {
		return nil, err
	}
	return d, nil
}

func newWah(ctx Context) (Program, error) {
	if err := ctx.checkOptions(); err != nil {
		return nil, err
	}
	w, err := effects.NewWah(ctx.SampleRate)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func newEQ(ctx Context) (Program, error) {
	if err := ctx.checkOptions("bands"); err != nil {
		return nil, err
	}
	var opts []effects.EQOption
	if v, ok := ctx.Options["bands"]; ok {
		fields := strings.Split(v, ",")
		if len(fields) != effects.EQBands {
			return nil, fmt.Errorf("bands: want %d frequencies, got %q", effects.EQBands, v)
		}
		var freqs [effects.EQBands]float64
		for i, f := range fields {
			hz, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("bands: %w", err)
			}
			freqs[i] = hz
		}
		opts = append(opts, effects.WithEQBands(freqs))
	}
	e, err := effects.NewEQ(ctx.SampleRate, opts...)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func newTuner(ctx Context) (Program, error) {
	if err := ctx.checkOptions("mute"); err != nil {
		return nil, err
	}
	if ctx.Tap == nil {
		return nil, errors.New("no tuner tap")
	}
	mute, err := strconv.ParseBool(ctx.Option("mute", "false"))
	if err != nil {
		return nil, fmt.Errorf("mute: %w", err)
	}
	t, err := effects.NewTuner(ctx.Tap, mute)
	if err != nil {
		return nil, err
	}
	return t, nil
}
