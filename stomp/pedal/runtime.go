// Package pedal assembles the stomp box: it owns the clock, the audio
// transport, the effect stage, the control path and the indicator, and
// runs them as a capture driver, a processing loop and a control loop.
package pedal

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-stomp/dsp/core"
	"github.com/cwbudde/algo-stomp/dsp/window"
	"github.com/cwbudde/algo-stomp/internal/hal"
	"github.com/cwbudde/algo-stomp/stomp/clock"
	"github.com/cwbudde/algo-stomp/stomp/footswitch"
	"github.com/cwbudde/algo-stomp/stomp/indicator"
	"github.com/cwbudde/algo-stomp/stomp/midi"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
	"github.com/cwbudde/algo-stomp/stomp/program"
	"github.com/cwbudde/algo-stomp/stomp/stage"
	"github.com/cwbudde/algo-stomp/stomp/transport"
	"github.com/cwbudde/algo-stomp/stomp/tuner"
)

const (
	// DefaultBlockFrames is one millisecond at the default rate.
	DefaultBlockFrames = 48
	// DefaultFaultThreshold is the number of consecutive failures of one
	// device that mark it faulted.
	DefaultFaultThreshold = 3
	// DefaultTunerIntervalMs is the tuner analysis cadence.
	DefaultTunerIntervalMs = 100
)

// ErrDeviceFault marks errors from a device that failed too many times in
// a row.
var ErrDeviceFault = errors.New("device fault")

// Devices are the hardware collaborators of the control path.
type Devices struct {
	ADC    hal.AnalogInput
	Switch hal.DigitalInput
	LED    hal.LED
}

// Recorder receives control-path events for metrics. Calls come from the
// control loop only.
type Recorder interface {
	SwitchEvent(e footswitch.Event)
	ParamPublish()
	ProgramChange(name string)
	DeviceFault(device string)
	MIDICommand(kind midi.Kind)
}

type nopRecorder struct{}

func (nopRecorder) SwitchEvent(footswitch.Event) {}
func (nopRecorder) ParamPublish()                {}
func (nopRecorder) ProgramChange(string)         {}
func (nopRecorder) DeviceFault(string)           {}
func (nopRecorder) MIDICommand(midi.Kind)        {}

// Option configures a Runtime.
type Option func(*config) error

type config struct {
	sampleRate     int
	blockFrames    int
	switchOpts     []footswitch.Option
	paramOpts      []param.Option
	indicatorOpts  []indicator.Option
	initial        stage.State
	registry       *program.Registry
	program        string
	programOptions map[string]map[string]string
	faultThreshold int
	tunerWindow    int
	tunerShape     window.Type
	tunerInterval  uint64
	logger         *slog.Logger
	recorder       Recorder
	midi           *midi.Listener
	session        string
}

// WithSampleRate sets the stream rate in Hz.
func WithSampleRate(rate int) Option {
	return func(cfg *config) error {
		if rate <= 0 {
			return fmt.Errorf("pedal sample rate must be > 0: %d", rate)
		}
		cfg.sampleRate = rate
		return nil
	}
}

// WithBlockFrames sets the transport block size.
func WithBlockFrames(n int) Option {
	return func(cfg *config) error {
		if n < 1 || n > pcm.MaxBlockFrames {
			return fmt.Errorf("pedal block frames must be in [1, %d]: %d", pcm.MaxBlockFrames, n)
		}
		cfg.blockFrames = n
		return nil
	}
}

// WithSwitchOptions passes options to the footswitch controller.
func WithSwitchOptions(opts ...footswitch.Option) Option {
	return func(cfg *config) error {
		cfg.switchOpts = append(cfg.switchOpts, opts...)
		return nil
	}
}

// WithParamOptions passes options to the parameter acquirer.
func WithParamOptions(opts ...param.Option) Option {
	return func(cfg *config) error {
		cfg.paramOpts = append(cfg.paramOpts, opts...)
		return nil
	}
}

// WithIndicatorOptions passes options to the indicator.
func WithIndicatorOptions(opts ...indicator.Option) Option {
	return func(cfg *config) error {
		cfg.indicatorOpts = append(cfg.indicatorOpts, opts...)
		return nil
	}
}

// WithInitialState sets the effect state at start.
func WithInitialState(s stage.State) Option {
	return func(cfg *config) error {
		if s != stage.Bypassed && s != stage.Engaged {
			return fmt.Errorf("pedal initial state is invalid: %d", s)
		}
		cfg.initial = s
		return nil
	}
}

// WithRegistry replaces the built-in program registry.
func WithRegistry(r *program.Registry) Option {
	return func(cfg *config) error {
		if r == nil || r.Len() == 0 {
			return errors.New("pedal registry is empty")
		}
		cfg.registry = r
		return nil
	}
}

// WithProgram selects the program at start.
func WithProgram(name string) Option {
	return func(cfg *config) error {
		cfg.program = name
		return nil
	}
}

// WithProgramOptions sets the options of one program.
func WithProgramOptions(name string, opts map[string]string) Option {
	return func(cfg *config) error {
		if cfg.programOptions == nil {
			cfg.programOptions = make(map[string]map[string]string)
		}
		cfg.programOptions[name] = opts
		return nil
	}
}

// WithFaultThreshold sets how many consecutive failures fault a device.
func WithFaultThreshold(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("pedal fault threshold must be >= 1: %d", n)
		}
		cfg.faultThreshold = n
		return nil
	}
}

// WithTuner sets the tuner window and analysis interval.
func WithTuner(window int, intervalMs uint64) Option {
	return func(cfg *config) error {
		if intervalMs == 0 {
			return errors.New("pedal tuner interval must be > 0")
		}
		cfg.tunerWindow = window
		cfg.tunerInterval = intervalMs
		return nil
	}
}

// WithTunerShape selects the tuner's analysis window function.
func WithTunerShape(t window.Type) Option {
	return func(cfg *config) error {
		if _, err := window.Generate(t, 1); err != nil {
			return fmt.Errorf("pedal tuner: %w", err)
		}
		cfg.tunerShape = t
		return nil
	}
}

// WithLogger sets the logger for control-path events.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) error {
		cfg.logger = l
		return nil
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(cfg *config) error {
		cfg.recorder = r
		return nil
	}
}

// WithMIDI attaches a MIDI listener drained by the control loop.
func WithMIDI(l *midi.Listener) Option {
	return func(cfg *config) error {
		cfg.midi = l
		return nil
	}
}

// WithSession sets the session id instead of a random one.
func WithSession(id string) Option {
	return func(cfg *config) error {
		if id == "" {
			return errors.New("pedal session id is empty")
		}
		cfg.session = id
		return nil
	}
}

// Runtime is the assembled pedal.
type Runtime struct {
	cfg     config
	// wake signals RunProcessor that a block was captured.
	wake    chan struct{}
	dev     Devices
	log     *slog.Logger
	rec     Recorder
	session string

	clock     *clock.Clock
	transport *transport.Transport
	publisher *param.Publisher
	acquirer  *param.Acquirer
	switchCtl *footswitch.Controller
	events    *footswitch.Queue
	stage     *stage.Stage
	indicator *indicator.Indicator
	tap       *tuner.Tap
	analyzer  *tuner.Analyzer

	// Control loop state.
	health    [numDevices]deviceHealth
	lastTuner uint64
	pending   atomic.Pointer[string]

	// Mirrors for Snapshot.
	programName atomic.Pointer[string]
	switchState atomic.Int32
	ledDuty     atomic.Uint32
	overrides   atomic.Uint32
	fault       atomic.Pointer[Fault]
	publishes   atomic.Uint64
	lastPoll    atomic.Uint64

	// Processing side.
	dspLoad atomic.Uint64
}

// New assembles a runtime around dev.
func New(dev Devices, opts ...Option) (*Runtime, error) {
	if dev.ADC == nil || dev.Switch == nil || dev.LED == nil {
		return nil, errors.New("pedal: missing device")
	}

	cfg := config{
		sampleRate:     pcm.SampleRate,
		blockFrames:    DefaultBlockFrames,
		initial:        stage.Bypassed,
		program:        program.Clean,
		faultThreshold: DefaultFaultThreshold,
		tunerWindow:    tuner.DefaultWindow,
		tunerShape:     window.TypeHann,
		tunerInterval:  DefaultTunerIntervalMs,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.registry == nil {
		cfg.registry = program.Builtin()
	}
	if cfg.registry.Lookup(cfg.program) == nil {
		return nil, fmt.Errorf("%w: %s", program.ErrUnknown, cfg.program)
	}

	r := &Runtime{
		cfg:     cfg,
		dev:     dev,
		session: cfg.session,
		rec:     cfg.recorder,
		events:  &footswitch.Queue{},
		wake:    make(chan struct{}, 1),
	}
	if r.session == "" {
		r.session = uuid.NewString()
	}
	if r.rec == nil {
		r.rec = nopRecorder{}
	}
	r.log = cfg.logger
	if r.log == nil {
		r.log = slog.New(slog.DiscardHandler)
	}
	r.log = r.log.With("session", r.session)

	var err error
	if r.clock, err = clock.New(cfg.sampleRate); err != nil {
		return nil, err
	}
	if r.transport, err = transport.New(cfg.blockFrames); err != nil {
		return nil, err
	}
	r.publisher = param.NewPublisher([param.NumChannels]float64{})
	if r.acquirer, err = param.NewAcquirer(dev.ADC, r.publisher, cfg.paramOpts...); err != nil {
		return nil, err
	}
	if r.switchCtl, err = footswitch.New(cfg.switchOpts...); err != nil {
		return nil, err
	}
	if r.stage, err = stage.New(r.publisher, r.events, stage.WithInitialState(cfg.initial)); err != nil {
		return nil, err
	}
	r.indicator = indicator.New(dev.LED, cfg.indicatorOpts...)

	tapSize := 1
	for tapSize < cfg.tunerWindow {
		tapSize <<= 1
	}
	if r.tap, err = tuner.NewTap(tapSize); err != nil {
		return nil, err
	}
	if r.analyzer, err = tuner.NewAnalyzer(r.tap, float64(cfg.sampleRate), tuner.WithWindow(cfg.tunerWindow), tuner.WithShape(cfg.tunerShape)); err != nil {
		return nil, err
	}

	if err := r.selectProgram(cfg.program); err != nil {
		return nil, err
	}
	return r, nil
}

// Session returns the random id of this runtime instance.
func (r *Runtime) Session() string { return r.session }

// Clock returns the sample clock.
func (r *Runtime) Clock() *clock.Clock { return r.clock }

// Transport returns the audio transport.
func (r *Runtime) Transport() *transport.Transport { return r.transport }

// Stage returns the effect stage.
func (r *Runtime) Stage() *stage.Stage { return r.stage }

// Registry returns the program registry.
func (r *Runtime) Registry() *program.Registry { return r.cfg.registry }

// Program returns the name of the running program.
func (r *Runtime) Program() string { return *r.programName.Load() }

// RequestProgram asks the control loop to switch to name at its next
// poll. Safe to call from any goroutine.
func (r *Runtime) RequestProgram(name string) {
	r.pending.Store(&name)
}

func (r *Runtime) processorConfig() core.ProcessorConfig {
	return core.ApplyProcessorOptions(
		core.WithSampleRate(float64(r.cfg.sampleRate)),
		core.WithBlockSize(r.cfg.blockFrames),
	)
}

// Controls returns the control metadata of the running program.
func (r *Runtime) Controls() []param.Control {
	if p, ok := r.stage.Transform().(program.Program); ok {
		return p.Controls()
	}
	return nil
}
