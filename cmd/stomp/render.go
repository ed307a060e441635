package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-stomp/internal/hal"
	"github.com/cwbudde/algo-stomp/internal/wavio"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
	"github.com/cwbudde/algo-stomp/stomp/pedal"
	"github.com/cwbudde/algo-stomp/stomp/stage"
)

type renderFlags struct {
	scenario string
	program  string
	engaged  bool
	tail     time.Duration
}

func newRenderCmd(a *app) *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render [flags] in.wav out.wav",
		Short: "Process a WAV file offline through the pedal",
		Long: "Render feeds a WAV file through the same transport, stage and control\n" +
			"loop as the real-time host, one control poll per elapsed millisecond.\n" +
			"A scenario file scripts switch presses, control moves and program\n" +
			"changes. Output is deterministic for a given input and scenario.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd, f, args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&f.scenario, "scenario", "", "YAML scenario with timed control actions")
	cmd.Flags().StringVar(&f.program, "program", "", "start program (overrides config)")
	cmd.Flags().BoolVar(&f.engaged, "engaged", false, "start with the effect engaged")
	cmd.Flags().DurationVar(&f.tail, "tail", 0, "silence appended after the input, e.g. for delay trails")
	return cmd
}

func (a *app) render(cmd *cobra.Command, f renderFlags, inPath, outPath string) error {
	sc := &scenario{}
	if f.scenario != "" {
		var err error
		if sc, err = loadScenario(f.scenario); err != nil {
			return err
		}
	}

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()
	src, err := wavio.NewSource(in, a.cfg.Audio.TransferFrames)
	if err != nil {
		return fmt.Errorf("%s: %w", inPath, err)
	}
	rate := src.SampleRate()

	dev, sw, adc := simDevices()
	opts := append(a.cfg.PedalOptions(a.logger), pedal.WithSampleRate(rate))
	if f.program != "" {
		opts = append(opts, pedal.WithProgram(f.program))
	}
	if f.engaged {
		opts = append(opts, pedal.WithInitialState(stage.Engaged))
	}
	r, err := pedal.New(dev, opts...)
	if err != nil {
		return err
	}
	play := newPlayer(sc, r, sw, adc, a.cfg.Params.ADCMax)

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	sink, err := wavio.NewSink(out, rate)
	if err != nil {
		return err
	}

	tail := int(f.tail.Seconds() * float64(rate))
	ctx := cmd.Context()
	start := time.Now()
	if err := r.RunDriver(ctx, &withTail{src: src, tail: tail}, sink, pedal.DriverOptions{
		Synchronous: true,
		OnTick:      play.tick,
	}); err != nil {
		return err
	}
	if err := r.Flush(ctx, sink); err != nil {
		return err
	}
	if err := sink.Close(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	s := r.Snapshot()
	if !play.done() {
		a.logger.Warn("scenario events after end of input were not applied")
	}
	a.logger.Info("render done",
		"frames", s.Frames,
		"seconds", float64(s.TimeMs)/1000,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"program", s.Program,
		"state", s.State.String(),
		"toggles", s.Toggles,
		"long_presses", s.LongPresses,
	)
	return nil
}

// simDevices returns simulated hardware at rest: pots at zero, switch up.
func simDevices() (pedal.Devices, *hal.SimSwitch, *hal.SimADC) {
	sw := &hal.SimSwitch{}
	adc := hal.NewSimADC(0)
	return pedal.Devices{ADC: adc, Switch: sw, LED: &hal.SimLED{}}, sw, adc
}

// withTail appends silent frames after src ends.
type withTail struct {
	src  hal.AudioSource
	tail int
	done bool
}

func (w *withTail) ReadFrames(frames []pcm.Frame) (int, error) {
	if !w.done {
		n, err := w.src.ReadFrames(frames)
		if errors.Is(err, io.EOF) {
			w.done = true
			err = nil
		}
		if n > 0 || err != nil {
			return n, err
		}
	}
	if w.tail <= 0 {
		return 0, io.EOF
	}
	n := min(len(frames), w.tail)
	clear(frames[:n])
	w.tail -= n
	return n, nil
}
