package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/cwbudde/algo-stomp/internal/cpu"
	"github.com/cwbudde/algo-stomp/internal/hal"
	"github.com/cwbudde/algo-stomp/internal/health"
	"github.com/cwbudde/algo-stomp/internal/observe"
	"github.com/cwbudde/algo-stomp/internal/panel"
	"github.com/cwbudde/algo-stomp/internal/playback"
	"github.com/cwbudde/algo-stomp/internal/rt"
	"github.com/cwbudde/algo-stomp/internal/wavio"
	"github.com/cwbudde/algo-stomp/stomp/midi"
	"github.com/cwbudde/algo-stomp/stomp/pedal"
	"github.com/cwbudde/algo-stomp/stomp/stage"
)

const shutdownTimeout = 5 * time.Second

type runFlags struct {
	source   string
	freq     float64
	amp      float64
	program  string
	engaged  bool
	speaker  bool
	panel    string
	listen   string
	midi     string
	mlock    bool
	duration time.Duration
	stats    time.Duration
	logFile  string
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pedal in real time on simulated hardware",
		Long: "Run drives the pedal from a sine, silence or a WAV file at the real\n" +
			"sample rate. The footswitch and controls are operated from the\n" +
			"terminal panel or over MIDI. Metrics and health endpoints are served\n" +
			"when a listen address is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.source, "source", "sine", "input: sine, silence or a WAV file path")
	fl.Float64Var(&f.freq, "freq", 110, "sine frequency in Hz")
	fl.Float64Var(&f.amp, "amp", 0.5, "sine amplitude in [0, 1]")
	fl.StringVar(&f.program, "program", "", "start program (overrides config)")
	fl.BoolVar(&f.engaged, "engaged", false, "start with the effect engaged")
	fl.BoolVar(&f.speaker, "speaker", false, "play the output on the default audio device")
	fl.StringVar(&f.panel, "panel", "auto", "terminal panel: auto, on or off")
	fl.StringVar(&f.listen, "listen", "", "metrics and health address, e.g. :9090 (overrides config)")
	fl.StringVar(&f.midi, "midi", "", "raw MIDI input device or file (overrides config)")
	fl.BoolVar(&f.mlock, "mlock", false, "lock process memory into RAM")
	fl.DurationVar(&f.duration, "duration", 0, "stop after this long; 0 runs until interrupted")
	fl.DurationVar(&f.stats, "stats-interval", 10*time.Second, "interval of the transport stats log")
	fl.StringVar(&f.logFile, "log-file", "", "write logs to this file, e.g. while the panel is shown")
	return cmd
}

func (a *app) run(parent context.Context, f runFlags) error {
	cfg := a.cfg
	if f.listen != "" {
		cfg.Server.Listen = f.listen
	}
	if f.midi != "" {
		cfg.MIDI.Input = f.midi
	}

	showPanel, err := wantPanel(f.panel)
	if err != nil {
		return err
	}
	logger := a.logger
	if f.logFile != "" {
		lf, err := os.OpenFile(f.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer lf.Close()
		logger = newLogger(lf, cfg.Log)
	} else if showPanel {
		// The panel owns the terminal.
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	if f.duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, f.duration)
		defer cancel()
	}

	session := uuid.NewString()
	dev, sw, adc := simDevices()
	opts := append(cfg.PedalOptions(logger), pedal.WithSession(session))
	if f.program != "" {
		opts = append(opts, pedal.WithProgram(f.program))
	}
	if f.engaged {
		opts = append(opts, pedal.WithInitialState(stage.Engaged))
	}

	var provider *observe.Provider
	var metrics *observe.Metrics
	if cfg.Server.Listen != "" {
		if provider, err = observe.InitProvider(ctx, observe.ProviderConfig{Session: session}); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		defer func() { _ = provider.Shutdown(context.Background()) }()
		if metrics, err = observe.NewMetrics(provider); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		opts = append(opts, pedal.WithRecorder(metrics))
	}

	var midiIn io.ReadCloser
	var listener *midi.Listener
	if cfg.MIDI.Input != "" {
		mapping, err := cfg.MIDI.Mapping()
		if err != nil {
			return err
		}
		if listener, err = midi.NewListener(mapping, logger); err != nil {
			return err
		}
		if midiIn, err = os.Open(cfg.MIDI.Input); err != nil {
			return fmt.Errorf("midi: %w", err)
		}
		defer midiIn.Close()
		opts = append(opts, pedal.WithMIDI(listener))
	}

	r, err := pedal.New(dev, opts...)
	if err != nil {
		return err
	}

	src, closeSrc, err := openSource(f, cfg.Audio.SampleRate, cfg.Audio.TransferFrames)
	if err != nil {
		return err
	}
	defer closeSrc()

	var sink hal.AudioSink = hal.Discard{}
	pace := true
	if f.speaker {
		spk, err := playback.Open(cfg.Audio.SampleRate)
		if err != nil {
			return err
		}
		defer spk.Close()
		sink, pace = spk, false
	}

	if f.mlock {
		unlock, err := rt.LockMemory()
		if err != nil {
			return err
		}
		defer func() { _ = unlock() }()
	}

	host := cpu.Detect()
	logger.Info("pedal starting",
		"session", session,
		"program", r.Program(),
		"state", r.Stage().State().String(),
		"sample_rate", cfg.Audio.SampleRate,
		"block_frames", cfg.Audio.BlockFrames,
		"source", f.source,
		"cpu", host.Brand,
		"simd", host.Features.Best().String(),
	)

	if metrics != nil {
		reg, err := metrics.Observe(r.Snapshot)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		defer func() { _ = reg.Unregister() }()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer rt.PinThread()()
		return r.RunProcessor(gctx)
	})
	g.Go(func() error {
		err := r.RunControl(gctx, time.Duration(cfg.Params.PollIntervalMs)*time.Millisecond)
		if err != nil {
			logger.Error("control loop stopped", "err", err)
		}
		return err
	})
	g.Go(func() error {
		err := r.RunDriver(gctx, src, sink, pedal.DriverOptions{Pace: pace})
		// The source ended: stop the rest of the host.
		cancel()
		return err
	})
	g.Go(func() error {
		statsLoop(gctx, r, logger, f.stats)
		return nil
	})

	if listener != nil {
		g.Go(func() error {
			go func() {
				<-gctx.Done()
				_ = midiIn.Close()
			}()
			if err := listener.Run(gctx, midiIn); err != nil && gctx.Err() == nil {
				return fmt.Errorf("midi: %w", err)
			}
			return nil
		})
	}

	if cfg.Server.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", provider.Handler())
		health.New(
			func() any { return r.Snapshot() },
			health.Func("devices", r.Ready),
		).Register(mux)
		srv := &http.Server{
			Addr:              cfg.Server.Listen,
			Handler:           otelhttp.NewHandler(mux, "stomp"),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics and health", "addr", cfg.Server.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	if showPanel {
		g.Go(func() error {
			return panel.New(r, sw, adc, cfg.Params.ADCMax).Run(gctx, cancel)
		})
	}

	err = g.Wait()
	s := r.Snapshot()
	logger.Info("pedal stopped",
		"seconds", float64(s.TimeMs)/1000,
		"blocks", s.Transport.Processed,
		"overruns", s.Transport.Overruns,
		"toggles", s.Toggles,
	)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func wantPanel(mode string) (bool, error) {
	switch strings.ToLower(mode) {
	case "auto":
		return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("panel must be auto, on or off: %q", mode)
}

func openSource(f runFlags, rate, chunk int) (hal.AudioSource, func(), error) {
	switch f.source {
	case "sine":
		if f.amp < 0 || f.amp > 1 || f.freq <= 0 {
			return nil, nil, fmt.Errorf("sine needs freq > 0 and amp in [0, 1]: %g Hz, %g", f.freq, f.amp)
		}
		return hal.NewSine(f.freq, f.amp, rate), func() {}, nil
	case "silence":
		return hal.Silence{}, func() {}, nil
	}

	file, err := os.Open(f.source)
	if err != nil {
		return nil, nil, err
	}
	src, err := wavio.NewSource(file, chunk)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("%s: %w", f.source, err)
	}
	if src.SampleRate() != rate {
		file.Close()
		return nil, nil, fmt.Errorf("%s: sample rate %d Hz does not match audio.sample_rate %d Hz", f.source, src.SampleRate(), rate)
	}
	return src, func() { file.Close() }, nil
}

// statsLoop logs transport counters whenever they changed.
func statsLoop(ctx context.Context, r *pedal.Runtime, logger *slog.Logger, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		s := r.Snapshot()
		if d := s.Transport.Overruns - last; d > 0 {
			logger.Warn("audio overruns", "new", d, "total", s.Transport.Overruns, "dsp_load", s.DSPLoad)
		}
		last = s.Transport.Overruns
		logger.Debug("transport", "processed", s.Transport.Processed, "dsp_load", s.DSPLoad, "program", s.Program)
	}
}
