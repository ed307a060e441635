// Package cpu describes the host processor for the info command and the
// run-time startup log: architecture, brand, core counts and the SIMD
// extensions the DSP kernels can use.
package cpu

import (
	"runtime"
	"sync"

	vcpu "github.com/cwbudde/algo-vecmath/cpu"
	"github.com/klauspost/cpuid"
)

// SIMDLevel is a SIMD instruction set extension.
type SIMDLevel int

const (
	SIMDNone SIMDLevel = iota
	SIMDSSE2
	SIMDAVX
	SIMDAVX2
	SIMDAVX512
	SIMDNEON
)

func (s SIMDLevel) String() string {
	switch s {
	case SIMDNone:
		return "none"
	case SIMDSSE2:
		return "SSE2"
	case SIMDAVX:
		return "AVX"
	case SIMDAVX2:
		return "AVX2"
	case SIMDAVX512:
		return "AVX-512"
	case SIMDNEON:
		return "NEON"
	default:
		return "unknown"
	}
}

// Features are the SIMD flags reported by the operating system.
type Features struct {
	HasSSE2   bool
	HasAVX    bool
	HasAVX2   bool
	HasAVX512 bool
	HasNEON   bool
}

// Best returns the widest supported extension.
func (f Features) Best() SIMDLevel {
	switch {
	case f.HasAVX512:
		return SIMDAVX512
	case f.HasAVX2:
		return SIMDAVX2
	case f.HasAVX:
		return SIMDAVX
	case f.HasSSE2:
		return SIMDSSE2
	case f.HasNEON:
		return SIMDNEON
	}
	return SIMDNone
}

// Report summarises the host.
type Report struct {
	Arch          string
	Brand         string
	PhysicalCores int
	LogicalCores  int
	Features      Features
	// Kernels is the extension the vector math library dispatches to.
	Kernels string
}

var (
	once   sync.Once
	report Report
)

// Detect returns the host report. Detection runs once.
func Detect() Report {
	once.Do(func() {
		report = Report{
			Arch:          runtime.GOARCH,
			Brand:         cpuid.CPU.BrandName,
			PhysicalCores: cpuid.CPU.PhysicalCores,
			LogicalCores:  cpuid.CPU.LogicalCores,
			Features:      detectFeatures(),
			Kernels:       kernels(vcpu.DetectFeatures()),
		}
		if report.Brand == "" {
			report.Brand = "unknown"
		}
		if report.LogicalCores == 0 {
			report.LogicalCores = runtime.NumCPU()
		}
	})
	return report
}

func kernels(f vcpu.Features) string {
	switch {
	case f.ForceGeneric:
		return "generic (forced)"
	case f.HasAVX2:
		return "avx2"
	case f.HasSSE2:
		return "sse2"
	case f.HasNEON:
		return "neon"
	}
	return "generic"
}
