package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cwbudde/algo-stomp/internal/config"
	"github.com/cwbudde/algo-stomp/internal/hal"
	"github.com/cwbudde/algo-stomp/stomp/midi"
	"github.com/cwbudde/algo-stomp/stomp/pedal"
	"github.com/cwbudde/algo-stomp/stomp/stage"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	if err := config.Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestEmptyDocumentKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestOverlayOnDefaults(t *testing.T) {
	t.Parallel()

	yaml := `
audio:
  block_frames: 64
  transfer_frames: 256
program:
  name: tremolo
  engaged: true
  options:
    tremolo:
      wave: square
midi:
  channel: 0
  cc:
    expression: 11
tuner:
  shape: flattop
log:
  level: debug
  format: json
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}

	want := config.Default()
	want.Audio.BlockFrames = 64
	want.Audio.TransferFrames = 256
	want.Program = config.ProgramConfig{
		Name:    "tremolo",
		Engaged: true,
		Options: map[string]map[string]string{"tremolo": {"wave": "square"}},
	}
	want.MIDI.Channel = 0
	want.MIDI.CC["expression"] = 11
	want.Tuner.Shape = "flattop"
	want.Log = config.LogConfig{Level: config.LogDebug, Format: "json"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	m, err := cfg.MIDI.Mapping()
	if err != nil {
		t.Fatalf("Mapping() error = %v", err)
	}
	if m.Channel != midi.Omni || m.CC[3] != 11 || m.CC[0] != midi.DefaultFirstCC {
		t.Fatalf("Mapping() = %+v", m)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("audio:\n  rate: 44100\n"))
	if err == nil || !strings.Contains(err.Error(), "rate") {
		t.Fatalf("LoadFromReader() error = %v, want unknown field", err)
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	t.Parallel()

	yaml := `
audio:
  block_frames: 48
  transfer_frames: 100
switch:
  debounce_ms: 0
tuner:
  window: 1000
  shape: kaiser
midi:
  bypass_cc: 20
log:
  level: loud
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("LoadFromReader() expected error")
	}
	for _, want := range []string{"transfer_frames", "debounce_ms", "tuner.window", "tuner.shape", "midi", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestMIDIMappingErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.MIDIConfig
	}{
		{"channel", config.MIDIConfig{Channel: 17, BypassCC: 102}},
		{"unknown control", config.MIDIConfig{Channel: 1, CC: map[string]int{"volume": 7}, BypassCC: 102}},
		{"cc range", config.MIDIConfig{Channel: 1, CC: map[string]int{"pot0": 128}, BypassCC: 102}},
		{"bypass range", config.MIDIConfig{Channel: 1, BypassCC: -1}},
	}
	for _, tt := range tests {
		if _, err := tt.cfg.Mapping(); err == nil {
			t.Fatalf("%s: Mapping() expected error", tt.name)
		}
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stomp.yaml")
	if err := os.WriteFile(path, []byte("program:\n  name: delay\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Program.Name != "delay" {
		t.Fatalf("Program.Name = %q", cfg.Program.Name)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load() expected error for a missing file")
	}
}

func TestPedalOptionsBuildRuntime(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Program.Name = "wah"
	cfg.Program.Engaged = true
	cfg.Program.Options = map[string]map[string]string{"distortion": {"mode": "fold"}}

	r, err := pedal.New(pedal.Devices{
		ADC:    hal.NewSimADC(0),
		Switch: &hal.SimSwitch{},
		LED:    &hal.SimLED{},
	}, cfg.PedalOptions(nil)...)
	if err != nil {
		t.Fatalf("pedal.New() error = %v", err)
	}
	if r.Program() != "wah" || r.Stage().State() != stage.Engaged {
		t.Fatalf("Program() = %q State() = %v", r.Program(), r.Stage().State())
	}
}

func TestLogLevel(t *testing.T) {
	t.Parallel()

	if !config.LogWarn.IsValid() || config.LogLevel("trace").IsValid() {
		t.Fatal("IsValid() mismatch")
	}
	if config.LogDebug.Slog().String() != "DEBUG" || config.LogLevel("").Slog().String() != "INFO" {
		t.Fatal("Slog() mismatch")
	}
}
