package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-stomp/dsp/core"
	"github.com/cwbudde/algo-stomp/stomp/program"
	"github.com/cwbudde/algo-stomp/stomp/tuner"
)

func newProgramsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "programs",
		Short: "List the built-in programs and their controls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listPrograms(cmd, a)
		},
	}
}

func listPrograms(cmd *cobra.Command, a *app) error {
	reg := program.Builtin()
	tap, err := tuner.NewTap(tuner.DefaultWindow)
	if err != nil {
		return err
	}
	ctx := program.Context{
		Tap: tap,
		ProcessorConfig: core.ApplyProcessorOptions(
			core.WithSampleRate(float64(a.cfg.Audio.SampleRate)),
			core.WithBlockSize(a.cfg.Audio.BlockFrames),
		),
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPROGRAM\tCONTROL\tINPUT\tRANGE")
	for i, name := range reg.Names() {
		p, err := reg.New(name, ctx)
		if err != nil {
			return err
		}
		controls := p.Controls()
		if len(controls) == 0 {
			fmt.Fprintf(w, "%d\t%s\t-\t-\t-\n", i, name)
			continue
		}
		for j, c := range controls {
			idx, label := "", ""
			if j == 0 {
				idx, label = fmt.Sprint(i), name
			}
			scale := ""
			if c.Exp {
				scale = " (exp)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g..%g %s%s\n", idx, label, c.Name, c.Channel, c.Min, c.Max, c.Unit, scale)
		}
	}
	return w.Flush()
}
