package core

import "testing"

func TestApplyProcessorOptions(t *testing.T) {
	cfg := ApplyProcessorOptions(WithSampleRate(96000), WithBlockSize(96))
	if cfg.SampleRate != 96000 {
		t.Fatalf("sample rate = %v, want 96000", cfg.SampleRate)
	}
	if cfg.BlockSize != 96 {
		t.Fatalf("block size = %d, want 96", cfg.BlockSize)
	}
	if cfg.Channels != 2 {
		t.Fatalf("channels = %d, want 2", cfg.Channels)
	}
}

func TestInvalidOptionsIgnored(t *testing.T) {
	cfg := ApplyProcessorOptions(WithSampleRate(0), WithBlockSize(-1), nil)
	def := defaultProcessorConfig()
	if cfg != def {
		t.Fatalf("cfg = %#v, want %#v", cfg, def)
	}
}

func TestProcessorConfigValidate(t *testing.T) {
	if err := defaultProcessorConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	bad := defaultProcessorConfig()
	bad.Channels = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero channels")
	}
}
