package main

import (
	"fmt"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-stomp/internal/cpu"
	"github.com/cwbudde/algo-stomp/internal/hal"
	"github.com/cwbudde/algo-stomp/internal/playback"
	"github.com/cwbudde/algo-stomp/internal/rt"
	"github.com/cwbudde/algo-stomp/stomp/footswitch"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

func newInfoCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show build constants, the pin map and host CPU features",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

			fmt.Fprintln(w, "AUDIO")
			fmt.Fprintf(w, "  sample rate\t%d Hz\n", pcm.SampleRate)
			fmt.Fprintf(w, "  format\t%d-bit, %d channels\n", pcm.BitsPerSample, pcm.Channels)
			fmt.Fprintf(w, "  max block\t%d frames\n", pcm.MaxBlockFrames)
			fmt.Fprintf(w, "  long press\t%v\n", footswitch.LongPressThreshold)
			fmt.Fprintf(w, "  display\t%dx%d\n", hal.DisplayWidth, hal.DisplayHeight)
			fmt.Fprintf(w, "  midi baud\t%d\n", hal.MIDIBaud)
			fmt.Fprintf(w, "  speaker\t%v\n", playback.Available)

			fmt.Fprintln(w, "PINS")
			for _, p := range hal.Pins() {
				fmt.Fprintf(w, "  %s\tGP%d\n", p.Name, p.Number)
			}

			r := cpu.Detect()
			fmt.Fprintln(w, "HOST")
			fmt.Fprintf(w, "  cpu\t%s\n", r.Brand)
			fmt.Fprintf(w, "  arch\t%s/%s\n", runtime.GOOS, r.Arch)
			fmt.Fprintf(w, "  cores\t%d physical, %d logical\n", r.PhysicalCores, r.LogicalCores)
			fmt.Fprintf(w, "  simd\t%s\n", r.Features.Best())
			fmt.Fprintf(w, "  kernels\t%s\n", r.Kernels)
			if lim, err := rt.MemlockLimit(); err == nil {
				fmt.Fprintf(w, "  memlock\t%d bytes\n", lim)
			} else {
				fmt.Fprintf(w, "  memlock\t%v\n", err)
			}
			fmt.Fprintf(w, "  go\t%s\n", runtime.Version())
			return w.Flush()
		},
	}
}
