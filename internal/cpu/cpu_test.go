package cpu

import (
	"runtime"
	"testing"
)

func TestBest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		f    Features
		want SIMDLevel
	}{
		{Features{}, SIMDNone},
		{Features{HasSSE2: true}, SIMDSSE2},
		{Features{HasSSE2: true, HasAVX: true, HasAVX2: true}, SIMDAVX2},
		{Features{HasSSE2: true, HasAVX2: true, HasAVX512: true}, SIMDAVX512},
		{Features{HasNEON: true}, SIMDNEON},
	}
	for _, tt := range tests {
		if got := tt.f.Best(); got != tt.want {
			t.Errorf("%+v.Best() = %v, want %v", tt.f, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	r := Detect()
	if r.Arch != runtime.GOARCH {
		t.Fatalf("Arch = %q, want %q", r.Arch, runtime.GOARCH)
	}
	if r.LogicalCores < 1 || r.Brand == "" || r.Kernels == "" {
		t.Fatalf("Detect() = %+v", r)
	}
	if runtime.GOARCH == "amd64" && !r.Features.HasSSE2 {
		t.Fatal("amd64 without SSE2")
	}
	if Detect() != r {
		t.Fatal("Detect() is not stable")
	}
}
