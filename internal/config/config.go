// Package config defines the YAML configuration of the stomp box host.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-stomp/dsp/window"
	"github.com/cwbudde/algo-stomp/stomp/footswitch"
	"github.com/cwbudde/algo-stomp/stomp/midi"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
	"github.com/cwbudde/algo-stomp/stomp/tuner"
)

// LogLevel is the minimum level of the log handler.
type LogLevel string

// Log levels.
const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a known level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog maps l onto a slog level. Unknown levels map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration.
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Switch    SwitchConfig    `yaml:"switch"`
	Params    ParamsConfig    `yaml:"params"`
	Program   ProgramConfig   `yaml:"program"`
	Indicator IndicatorConfig `yaml:"indicator"`
	MIDI      MIDIConfig      `yaml:"midi"`
	Tuner     TunerConfig     `yaml:"tuner"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// AudioConfig sets the stream format.
type AudioConfig struct {
	SampleRate  int `yaml:"sample_rate"`
	BlockFrames int `yaml:"block_frames"`
	// TransferFrames is the granularity of device reads. It must be a
	// multiple of BlockFrames.
	TransferFrames int `yaml:"transfer_frames"`
}

// SwitchConfig sets the footswitch wiring and timing.
type SwitchConfig struct {
	DebounceMs  int  `yaml:"debounce_ms"`
	LongPressMs int  `yaml:"long_press_ms"`
	ActiveLow   bool `yaml:"active_low"`
}

// ParamsConfig sets control acquisition.
type ParamsConfig struct {
	PollIntervalMs   int     `yaml:"poll_interval_ms"`
	SmoothingMs      int     `yaml:"smoothing_ms"`
	PublishThreshold float64 `yaml:"publish_threshold"`
	PickupThreshold  float64 `yaml:"pickup_threshold"`
	ADCMax           int     `yaml:"adc_max"`
	Deglitch         bool    `yaml:"deglitch"`
}

// ProgramConfig selects the start program and per-program options.
type ProgramConfig struct {
	Name    string                       `yaml:"name"`
	Engaged bool                         `yaml:"engaged"`
	Options map[string]map[string]string `yaml:"options"`
}

// IndicatorConfig sets the LED patterns and fault policy.
type IndicatorConfig struct {
	FlashBlinks    int `yaml:"flash_blinks"`
	FlashPeriodMs  int `yaml:"flash_period_ms"`
	FaultThreshold int `yaml:"fault_threshold"`
}

// MIDIConfig maps MIDI messages onto controls.
type MIDIConfig struct {
	// Input is a raw MIDI device or file. Empty disables MIDI.
	Input string `yaml:"input"`
	// Channel is 1-16, or 0 for omni.
	Channel  int            `yaml:"channel"`
	CC       map[string]int `yaml:"cc"`
	BypassCC int            `yaml:"bypass_cc"`
}

// TunerConfig sets the tuner analysis.
type TunerConfig struct {
	Window     int    `yaml:"window"`
	Shape      string `yaml:"shape"`
	IntervalMs int    `yaml:"interval_ms"`
}

// ServerConfig sets the metrics and health listener.
type ServerConfig struct {
	// Listen is the HTTP address. Empty disables the server.
	Listen string `yaml:"listen"`
}

// LogConfig sets the log handler.
type LogConfig struct {
	Level  LogLevel `yaml:"level"`
	Format string   `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	m := midi.DefaultMapping()
	cc := make(map[string]int, param.NumChannels)
	for ch := range param.NumChannels {
		cc[param.Channel(ch).String()] = int(m.CC[ch])
	}
	return &Config{
		Audio: AudioConfig{
			SampleRate:     pcm.SampleRate,
			BlockFrames:    48,
			TransferFrames: 48,
		},
		Switch: SwitchConfig{
			DebounceMs:  int(footswitch.DefaultDebounce / time.Millisecond),
			LongPressMs: int(footswitch.LongPressThreshold / time.Millisecond),
			ActiveLow:   true,
		},
		Params: ParamsConfig{
			PollIntervalMs:   int(param.DefaultPollInterval / time.Millisecond),
			SmoothingMs:      int(param.DefaultSmoothing / time.Millisecond),
			PublishThreshold: param.DefaultPublishThreshold,
			PickupThreshold:  param.DefaultPickupThreshold,
			ADCMax:           param.DefaultADCMax,
		},
		Program: ProgramConfig{Name: "clean"},
		Indicator: IndicatorConfig{
			FlashBlinks:    3,
			FlashPeriodMs:  60,
			FaultThreshold: 3,
		},
		MIDI: MIDIConfig{
			Channel:  1,
			CC:       cc,
			BypassCC: midi.DefaultBypassCC,
		},
		Tuner: TunerConfig{
			Window:     tuner.DefaultWindow,
			Shape:      window.TypeHann.String(),
			IntervalMs: 100,
		},
		Log: LogConfig{Level: LogInfo, Format: "text"},
	}
}

// Load reads the YAML file at path over the defaults and validates it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates the
// result. Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that c is coherent. It returns all failures joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	// Audio
	if c.Audio.SampleRate <= 0 {
		add("audio.sample_rate must be > 0: %d", c.Audio.SampleRate)
	}
	if c.Audio.BlockFrames < 1 || c.Audio.BlockFrames > pcm.MaxBlockFrames {
		add("audio.block_frames must be in [1, %d]: %d", pcm.MaxBlockFrames, c.Audio.BlockFrames)
	} else if c.Audio.TransferFrames < 1 || c.Audio.TransferFrames%c.Audio.BlockFrames != 0 {
		add("audio.transfer_frames must be a positive multiple of block_frames (%d): %d", c.Audio.BlockFrames, c.Audio.TransferFrames)
	}

	// Switch
	if c.Switch.DebounceMs <= 0 {
		add("switch.debounce_ms must be > 0: %d", c.Switch.DebounceMs)
	}
	if c.Switch.LongPressMs <= c.Switch.DebounceMs {
		add("switch.long_press_ms must exceed debounce_ms: %d", c.Switch.LongPressMs)
	}

	// Params
	if c.Params.PollIntervalMs <= 0 {
		add("params.poll_interval_ms must be > 0: %d", c.Params.PollIntervalMs)
	}
	if c.Params.SmoothingMs < 0 {
		add("params.smoothing_ms must be >= 0: %d", c.Params.SmoothingMs)
	}
	if c.Params.PublishThreshold < 0 || c.Params.PublishThreshold >= 1 {
		add("params.publish_threshold must be in [0, 1): %g", c.Params.PublishThreshold)
	}
	if c.Params.PickupThreshold < 0 || c.Params.PickupThreshold >= 1 {
		add("params.pickup_threshold must be in [0, 1): %g", c.Params.PickupThreshold)
	}
	if c.Params.ADCMax <= 0 {
		add("params.adc_max must be > 0: %d", c.Params.ADCMax)
	}

	// Program
	if c.Program.Name == "" {
		add("program.name is required")
	}

	// Indicator
	if c.Indicator.FlashBlinks < 0 {
		add("indicator.flash_blinks must be >= 0: %d", c.Indicator.FlashBlinks)
	}
	if c.Indicator.FlashPeriodMs < 2 {
		add("indicator.flash_period_ms must be >= 2: %d", c.Indicator.FlashPeriodMs)
	}
	if c.Indicator.FaultThreshold < 1 {
		add("indicator.fault_threshold must be >= 1: %d", c.Indicator.FaultThreshold)
	}

	// MIDI
	if _, err := c.MIDI.Mapping(); err != nil {
		errs = append(errs, err)
	}

	// Tuner
	if w := c.Tuner.Window; w < 256 || w&(w-1) != 0 {
		add("tuner.window must be a power of two >= 256: %d", w)
	}
	if _, err := window.ParseType(c.Tuner.Shape); err != nil {
		add("tuner.shape: %v", err)
	}
	if c.Tuner.IntervalMs <= 0 {
		add("tuner.interval_ms must be > 0: %d", c.Tuner.IntervalMs)
	}

	// Log
	if !c.Log.Level.IsValid() {
		add("log.level %q is invalid; valid values: debug, info, warn, error", c.Log.Level)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		add("log.format %q is invalid; valid values: text, json", c.Log.Format)
	}

	return errors.Join(errs...)
}

// Mapping converts the MIDI section into a validated midi.Mapping.
func (m MIDIConfig) Mapping() (midi.Mapping, error) {
	var errs []error
	out := midi.DefaultMapping()
	switch {
	case m.Channel == 0:
		out.Channel = midi.Omni
	case m.Channel >= 1 && m.Channel <= 16:
		out.Channel = m.Channel - 1
	default:
		errs = append(errs, fmt.Errorf("midi.channel must be 0-16: %d", m.Channel))
	}
	for name, cc := range m.CC {
		ch, err := param.ParseChannel(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("midi.cc: %w", err))
			continue
		}
		if cc < 0 || cc > 127 {
			errs = append(errs, fmt.Errorf("midi.cc.%s must be 0-127: %d", name, cc))
			continue
		}
		out.CC[ch] = uint8(cc)
	}
	if m.BypassCC < 0 || m.BypassCC > 127 {
		errs = append(errs, fmt.Errorf("midi.bypass_cc must be 0-127: %d", m.BypassCC))
	} else {
		out.BypassCC = uint8(m.BypassCC)
	}
	if len(errs) == 0 {
		errs = append(errs, out.Validate())
	}
	if err := errors.Join(errs...); err != nil {
		return midi.Mapping{}, err
	}
	return out, nil
}

// Ms converts a millisecond count to a duration.
func Ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
