package config

import (
	"log/slog"

	"github.com/cwbudde/algo-stomp/dsp/window"
	"github.com/cwbudde/algo-stomp/stomp/footswitch"
	"github.com/cwbudde/algo-stomp/stomp/indicator"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pedal"
	"github.com/cwbudde/algo-stomp/stomp/stage"
)

// PedalOptions translates the configuration into runtime options.
func (c *Config) PedalOptions(logger *slog.Logger) []pedal.Option {
	initial := stage.Bypassed
	if c.Program.Engaged {
		initial = stage.Engaged
	}
	opts := []pedal.Option{
		pedal.WithSampleRate(c.Audio.SampleRate),
		pedal.WithBlockFrames(c.Audio.BlockFrames),
		pedal.WithSwitchOptions(
			footswitch.WithDebounce(Ms(c.Switch.DebounceMs)),
			footswitch.WithLongPress(Ms(c.Switch.LongPressMs)),
			footswitch.WithActiveLow(c.Switch.ActiveLow),
		),
		pedal.WithParamOptions(
			param.WithADCMax(c.Params.ADCMax),
			param.WithPollInterval(Ms(c.Params.PollIntervalMs)),
			param.WithSmoothing(Ms(c.Params.SmoothingMs)),
			param.WithPublishThreshold(c.Params.PublishThreshold),
			param.WithPickupThreshold(c.Params.PickupThreshold),
			param.WithDeglitch(c.Params.Deglitch),
		),
		pedal.WithIndicatorOptions(indicator.WithFlash(c.Indicator.FlashBlinks, uint64(c.Indicator.FlashPeriodMs))),
		pedal.WithInitialState(initial),
		pedal.WithProgram(c.Program.Name),
		pedal.WithFaultThreshold(c.Indicator.FaultThreshold),
		pedal.WithTuner(c.Tuner.Window, uint64(c.Tuner.IntervalMs)),
		pedal.WithLogger(logger),
	}
	if shape, err := window.ParseType(c.Tuner.Shape); err == nil {
		opts = append(opts, pedal.WithTunerShape(shape))
	}
	for name, o := range c.Program.Options {
		opts = append(opts, pedal.WithProgramOptions(name, o))
	}
	return opts
}
