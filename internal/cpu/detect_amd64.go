//go:build amd64

package cpu

import "golang.org/x/sys/cpu"

func detectFeatures() Features {
	return Features{
		HasSSE2:   cpu.X86.HasSSE2,
		HasAVX:    cpu.X86.HasAVX,
		HasAVX2:   cpu.X86.HasAVX2,
		HasAVX512: cpu.X86.HasAVX512,
	}
}
