package pedal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cwbudde/algo-stomp/stomp/footswitch"
	"github.com/cwbudde/algo-stomp/stomp/midi"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/program"
	"github.com/cwbudde/algo-stomp/stomp/stage"
)

type device int

const (
	deviceSwitch device = iota
	deviceADC
	deviceLED
	numDevices
)

func (d device) String() string {
	switch d {
	case deviceSwitch:
		return "switch"
	case deviceADC:
		return "adc"
	case deviceLED:
		return "led"
	default:
		return fmt.Sprintf("device(%d)", int(d))
	}
}

type deviceHealth struct {
	failures int
	err      error
}

// Fault describes a faulted device.
type Fault struct {
	Device string
	Err    error
}

func (f Fault) Error() string { return f.Device + ": " + f.Err.Error() }

// MarshalJSON encodes the fault with its error text.
func (f Fault) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Device string `json:"device"`
		Error  string `json:"error"`
	}{f.Device, f.Err.Error()})
}

// Poll runs one control loop tick at nowMs: it samples the footswitch,
// queues its events, runs the secondary action, applies MIDI commands,
// reads and publishes the controls and drives the LED. A device that keeps
// failing yields an error wrapping ErrDeviceFault.
func (r *Runtime) Poll(nowMs uint64) error {
	r.lastPoll.Store(nowMs)

	if p := r.pending.Swap(nil); p != nil {
		r.changeProgram(*p, "request")
	}

	level, err := r.dev.Switch.Level()
	r.report(deviceSwitch, err)
	if err == nil {
		r.handleSwitch(r.switchCtl.Update(level, nowMs), nowMs)
	}
	r.switchState.Store(int32(r.switchCtl.State()))

	r.drainMIDI()

	_, published, err := r.acquirer.Poll()
	r.report(deviceADC, err)
	if published {
		r.publishes.Add(1)
		r.rec.ParamPublish()
	}
	var mask uint32
	for ch := range param.NumChannels {
		if r.acquirer.Overridden(param.Channel(ch)) {
			mask |= 1 << ch
		}
	}
	r.overrides.Store(mask)

	if r.Program() == program.Tuner && nowMs-r.lastTuner >= r.cfg.tunerInterval {
		r.lastTuner = nowMs
		if _, err := r.analyzer.Update(); err != nil {
			r.log.Warn("tuner analysis failed", "err", err)
		}
	}

	var faultErr error
	for d := range numDevices {
		h := r.health[d]
		if h.failures >= r.cfg.faultThreshold {
			faultErr = errors.Join(faultErr, fmt.Errorf("%w: %s: %w", ErrDeviceFault, d, h.err))
		}
	}
	if faultErr != nil {
		r.indicator.Fault(faultErr)
	} else if r.indicator.Faulted() != nil {
		r.indicator.ClearFault()
		r.fault.Store(nil)
		r.log.Info("device fault cleared")
	}

	err = r.indicator.Update(nowMs, r.stage.State())
	r.report(deviceLED, err)
	r.ledDuty.Store(uint32(r.indicator.Duty()))

	return faultErr
}

// report tracks consecutive failures of a device.
func (r *Runtime) report(d device, err error) {
	h := &r.health[d]
	if err == nil {
		h.failures = 0
		h.err = nil
		return
	}
	h.failures++
	h.err = err
	switch {
	case h.failures == r.cfg.faultThreshold:
		r.fault.Store(&Fault{Device: d.String(), Err: err})
		r.rec.DeviceFault(d.String())
		r.log.Error("device faulted", "device", d.String(), "failures", h.failures, "err", err)
	case h.failures < r.cfg.faultThreshold:
		r.log.Warn("device error", "device", d.String(), "err", err)
	}
}

func (r *Runtime) handleSwitch(e footswitch.Event, nowMs uint64) {
	if e == footswitch.None {
		return
	}
	r.rec.SwitchEvent(e)
	if !r.events.Push(e) {
		r.log.Warn("switch event dropped", "event", e.String())
	}
	r.log.Debug("switch event", "event", e.String(), "at_ms", nowMs)

	if e == footswitch.LongPressReached {
		r.indicator.Flash(nowMs)
		r.changeProgram(r.cfg.registry.Next(r.Program()), "long press")
	}
}

func (r *Runtime) drainMIDI() {
	if r.cfg.midi == nil {
		return
	}
	for {
		cmd, ok := r.cfg.midi.Poll()
		if !ok {
			return
		}
		r.rec.MIDICommand(cmd.Kind)
		switch cmd.Kind {
		case midi.KindParam:
			r.acquirer.Override(cmd.Channel, cmd.Value)
		case midi.KindProgram:
			name, ok := r.cfg.registry.At(cmd.Program)
			if !ok {
				r.log.Warn("midi program out of range", "program", cmd.Program)
				continue
			}
			r.changeProgram(name, "midi")
		case midi.KindBypass:
			if cmd.Engage {
				r.stage.Request(stage.Engaged)
			} else {
				r.stage.Request(stage.Bypassed)
			}
		}
	}
}

func (r *Runtime) changeProgram(name, reason string) {
	if name == r.Program() {
		return
	}
	if err := r.selectProgram(name); err != nil {
		r.log.Error("program change failed", "program", name, "reason", reason, "err", err)
		return
	}
	r.log.Info("program changed", "program", name, "reason", reason)
}

// selectProgram builds name and installs it on the stage.
func (r *Runtime) selectProgram(name string) error {
	p, err := r.cfg.registry.New(name, program.Context{
		ProcessorConfig: r.processorConfig(),
		Options:         r.cfg.programOptions[name],
		Tap:             r.tap,
	})
	if err != nil {
		return err
	}
	r.stage.SetTransform(p)
	if src, ok := p.(program.LEDSource); ok {
		r.indicator.SetLevelSource(src.LEDLevel)
	} else {
		r.indicator.SetLevelSource(nil)
	}
	r.programName.Store(&name)
	r.rec.ProgramChange(name)
	return nil
}
