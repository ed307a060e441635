// Package stage runs the per-frame effect path: it applies the pluggable
// transform to every captured frame, or passes frames through untouched
// while bypassed, and toggles between the two on a short footswitch press.
package stage

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-stomp/stomp/footswitch"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
	"github.com/cwbudde/algo-stomp/stomp/transport"
)

// State is the effect runtime state.
type State int32

const (
	// Bypassed passes input frames through unchanged.
	Bypassed State = iota
	// Engaged runs every frame through the installed transform.
	Engaged
)

func (s State) String() string {
	switch s {
	case Bypassed:
		return "bypassed"
	case Engaged:
		return "engaged"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Transform computes one output frame from one input frame and the
// current parameters. Implementations must not block or allocate, and
// must be deterministic for identical inputs and internal state.
type Transform interface {
	Transform(in pcm.Frame, p param.Vector) pcm.Frame
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(in pcm.Frame, p param.Vector) pcm.Frame

// Transform calls f.
func (f TransformFunc) Transform(in pcm.Frame, p param.Vector) pcm.Frame { return f(in, p) }

// Resetter is implemented by transforms with internal state. Reset is
// called before the transform is installed.
type Resetter interface {
	Reset()
}

// ParamSource yields the latest published parameter vector.
type ParamSource interface {
	Load() param.Vector
}

// EventSource yields pending switch events, each exactly once.
type EventSource interface {
	Next() (footswitch.Event, bool)
}

// Option configures a Stage.
type Option func(*config) error

type config struct {
	initial   State
	transform Transform
}

// WithInitialState sets the state at construction.
func WithInitialState(s State) Option {
	return func(cfg *config) error {
		if s != Bypassed && s != Engaged {
			return fmt.Errorf("stage initial state is invalid: %d", s)
		}
		cfg.initial = s
		return nil
	}
}

// WithTransform installs the initial transform.
func WithTransform(t Transform) Option {
	return func(cfg *config) error {
		cfg.transform = t
		return nil
	}
}

type slot struct {
	t Transform
}

const noRequest = -1

// Stage is the effect stage. ProcessFrame, ProcessBlock and Service belong
// to the audio path; SetTransform and Request belong to the slow loop;
// the accessors may be called from anywhere.
type Stage struct {
	params ParamSource
	events EventSource

	transform atomic.Pointer[slot]
	state     atomic.Int32
	request   atomic.Int32

	toggles     atomic.Uint64
	longPresses atomic.Uint64
	frames      atomic.Uint64
}

// New returns a stage reading parameters and events from the given
// sources. Without a transform the engaged path is identity.
func New(params ParamSource, events EventSource, opts ...Option) (*Stage, error) {
	if params == nil {
		return nil, errors.New("stage: nil parameter source")
	}
	if events == nil {
		return nil, errors.New("stage: nil event source")
	}

	cfg := config{initial: Bypassed}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	s := &Stage{params: params, events: events}
	s.state.Store(int32(cfg.initial))
	s.request.Store(noRequest)
	s.SetTransform(cfg.transform)
	return s, nil
}

// SetTransform resets and installs t. The audio path picks it up at the
// next block. A nil transform is identity.
func (s *Stage) SetTransform(t Transform) {
	if r, ok := t.(Resetter); ok {
		r.Reset()
	}
	s.transform.Store(&slot{t: t})
}

// Transform returns the installed transform.
func (s *Stage) Transform() Transform {
	return s.transform.Load().t
}

// Request asks the audio path to switch to state at the next frame, for
// remote bypass control. The switch is not counted as a toggle.
func (s *Stage) Request(state State) {
	if state == Bypassed || state == Engaged {
		s.request.Store(int32(state))
	}
}

// State returns the current effect runtime state.
func (s *Stage) State() State { return State(s.state.Load()) }

// Toggles returns how many short presses toggled the state.
func (s *Stage) Toggles() uint64 { return s.toggles.Load() }

// LongPresses returns how many long-press events reached the stage.
func (s *Stage) LongPresses() uint64 { return s.longPresses.Load() }

// Frames returns how many frames were processed.
func (s *Stage) Frames() uint64 { return s.frames.Load() }

// ProcessFrame processes a single frame.
func (s *Stage) ProcessFrame(in pcm.Frame) pcm.Frame {
	s.frames.Add(1)
	return s.process(in, s.transform.Load().t)
}

// ProcessBlock processes every frame of b in capture order, in place.
func (s *Stage) ProcessBlock(b *pcm.Block) {
	t := s.transform.Load().t
	for i := range b.Frames {
		b.Frames[i] = s.process(b.Frames[i], t)
	}
	s.frames.Add(uint64(len(b.Frames)))
}

// Service processes the next captured block, if any, and hands it back
// for transmission. It reports whether a block was processed.
func (s *Stage) Service(t *transport.Transport) (bool, error) {
	b, ok := t.AcquireForProcessing()
	if !ok {
		return false, nil
	}
	s.ProcessBlock(b)
	if err := t.ReleaseProcessed(b); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Stage) process(in pcm.Frame, t Transform) pcm.Frame {
	v := s.params.Load()

	if r := s.request.Swap(noRequest); r != noRequest {
		s.state.Store(r)
	}
	if ev, ok := s.events.Next(); ok {
		s.handle(ev)
	}

	if State(s.state.Load()) == Bypassed || t == nil {
		return in
	}
	return t.Transform(in, v)
}

func (s *Stage) handle(ev footswitch.Event) {
	switch ev {
	case footswitch.ShortPressReleased:
		if State(s.state.Load()) == Bypassed {
			s.state.Store(int32(Engaged))
		} else {
			s.state.Store(int32(Bypassed))
		}
		s.toggles.Add(1)
	case footswitch.LongPressReached:
		s.longPresses.Add(1)
	}
}
