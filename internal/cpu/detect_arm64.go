//go:build arm64

package cpu

import "golang.org/x/sys/cpu"

// NEON is mandatory on ARMv8.
func detectFeatures() Features {
	return Features{HasNEON: cpu.ARM64.HasASIMD}
}
