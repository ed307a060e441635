package pedal

import (
	"math"

	"github.com/cwbudde/algo-stomp/stomp/footswitch"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/stage"
	"github.com/cwbudde/algo-stomp/stomp/transport"
	"github.com/cwbudde/algo-stomp/stomp/tuner"
)

// Snapshot is a consistent-enough view of the runtime for displays and
// metrics. Each field is read atomically on its own.
type Snapshot struct {
	Session string
	TimeMs  uint64
	PollMs  uint64

	Program     string
	State       stage.State
	Switch      footswitch.State
	Params      param.Vector
	Overridden  [param.NumChannels]bool
	LEDDuty     uint16
	Tuner       tuner.Reading
	Fault       *Fault
	DSPLoad     float64
	Transport   transport.Stats
	Toggles     uint64
	LongPresses uint64
	Frames      uint64
	Publishes   uint64

	EventsDropped uint64
	MIDIReceived  uint64
	MIDIDropped   uint64
}

// Snapshot returns the current view. Safe from any goroutine.
func (r *Runtime) Snapshot() Snapshot {
	s := Snapshot{
		Session:     r.session,
		TimeMs:      r.clock.Millis(),
		PollMs:      r.lastPoll.Load(),
		Program:     r.Program(),
		State:       r.stage.State(),
		Switch:      footswitch.State(r.switchState.Load()),
		Params:      r.publisher.Load(),
		LEDDuty:     uint16(r.ledDuty.Load()),
		Tuner:       r.analyzer.Latest(),
		Fault:       r.fault.Load(),
		DSPLoad:     math.Float64frombits(r.dspLoad.Load()),
		Transport:   r.transport.Stats(),
		Toggles:     r.stage.Toggles(),
		LongPresses: r.stage.LongPresses(),
		Frames:      r.stage.Frames(),
		Publishes:   r.publishes.Load(),

		EventsDropped: r.events.Dropped(),
	}
	mask := r.overrides.Load()
	for ch := range s.Overridden {
		s.Overridden[ch] = mask&(1<<ch) != 0
	}
	if r.cfg.midi != nil {
		s.MIDIReceived = r.cfg.midi.Received()
		s.MIDIDropped = r.cfg.midi.Dropped()
	}
	return s
}

// Ready reports the active device fault, if any.
func (r *Runtime) Ready() error {
	if f := r.fault.Load(); f != nil {
		return f
	}
	return nil
}
