// Package observe exports the pedal's runtime state as OpenTelemetry
// metrics. Control-path events are recorded through Metrics, which
// implements pedal.Recorder; audio-path counters are observed from
// snapshots at collection time so the processing goroutine never touches
// an instrument.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cwbudde/algo-stomp/stomp/footswitch"
	"github.com/cwbudde/algo-stomp/stomp/midi"
	"github.com/cwbudde/algo-stomp/stomp/pedal"
	"github.com/cwbudde/algo-stomp/stomp/stage"
)

const meterName = "github.com/cwbudde/algo-stomp"

// Metrics holds the control-path instruments.
type Metrics struct {
	// SwitchEvents counts footswitch events by attribute "event".
	SwitchEvents metric.Int64Counter

	// ParamPublishes counts published parameter vectors.
	ParamPublishes metric.Int64Counter

	// ProgramChanges counts program installs by attribute "program".
	ProgramChanges metric.Int64Counter

	// DeviceFaults counts devices reaching the fault threshold by
	// attribute "device".
	DeviceFaults metric.Int64Counter

	// MIDICommands counts decoded MIDI commands by attribute "kind".
	MIDICommands metric.Int64Counter

	meter metric.Meter
}

var _ pedal.Recorder = (*Metrics)(nil)

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{meter: m}

	if met.SwitchEvents, err = m.Int64Counter("stomp.switch.events",
		metric.WithDescription("Footswitch events by kind."),
	); err != nil {
		return nil, err
	}
	if met.ParamPublishes, err = m.Int64Counter("stomp.param.publishes",
		metric.WithDescription("Published parameter vectors."),
	); err != nil {
		return nil, err
	}
	if met.ProgramChanges, err = m.Int64Counter("stomp.program.changes",
		metric.WithDescription("Installed programs by name."),
	); err != nil {
		return nil, err
	}
	if met.DeviceFaults, err = m.Int64Counter("stomp.device.faults",
		metric.WithDescription("Devices that reached the fault threshold."),
	); err != nil {
		return nil, err
	}
	if met.MIDICommands, err = m.Int64Counter("stomp.midi.commands",
		metric.WithDescription("Decoded MIDI commands by kind."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// SwitchEvent implements pedal.Recorder.
func (m *Metrics) SwitchEvent(e footswitch.Event) {
	m.SwitchEvents.Add(context.Background(), 1, metric.WithAttributes(attribute.String("event", e.String())))
}

// ParamPublish implements pedal.Recorder.
func (m *Metrics) ParamPublish() {
	m.ParamPublishes.Add(context.Background(), 1)
}

// ProgramChange implements pedal.Recorder.
func (m *Metrics) ProgramChange(name string) {
	m.ProgramChanges.Add(context.Background(), 1, metric.WithAttributes(attribute.String("program", name)))
}

// DeviceFault implements pedal.Recorder.
func (m *Metrics) DeviceFault(device string) {
	m.DeviceFaults.Add(context.Background(), 1, metric.WithAttributes(attribute.String("device", device)))
}

// MIDICommand implements pedal.Recorder.
func (m *Metrics) MIDICommand(kind midi.Kind) {
	m.MIDICommands.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind.String())))
}

// Observe registers asynchronous instruments read from snap at every
// collection. The returned registration is released with Unregister.
func (m *Metrics) Observe(snap func() pedal.Snapshot) (metric.Registration, error) {
	blocks, err := m.meter.Int64ObservableCounter("stomp.audio.blocks",
		metric.WithDescription("Audio blocks processed."))
	if err != nil {
		return nil, err
	}
	overruns, err := m.meter.Int64ObservableCounter("stomp.audio.overruns",
		metric.WithDescription("Captured blocks dropped because processing fell behind."))
	if err != nil {
		return nil, err
	}
	frames, err := m.meter.Int64ObservableCounter("stomp.audio.frames",
		metric.WithDescription("Frames passed through the effect stage."))
	if err != nil {
		return nil, err
	}
	engaged, err := m.meter.Int64ObservableGauge("stomp.stage.engaged",
		metric.WithDescription("1 when the effect is engaged, 0 when bypassed."))
	if err != nil {
		return nil, err
	}
	load, err := m.meter.Float64ObservableGauge("stomp.audio.dsp_load",
		metric.WithDescription("Smoothed processing time per block over the block duration."),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}
	dropped, err := m.meter.Int64ObservableCounter("stomp.switch.dropped",
		metric.WithDescription("Footswitch events dropped on a full queue."))
	if err != nil {
		return nil, err
	}

	return m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := snap()
		o.ObserveInt64(blocks, int64(s.Transport.Processed))
		o.ObserveInt64(overruns, int64(s.Transport.Overruns))
		o.ObserveInt64(frames, int64(s.Frames))
		var on int64
		if s.State == stage.Engaged {
			on = 1
		}
		o.ObserveInt64(engaged, on, metric.WithAttributes(attribute.String("program", s.Program)))
		o.ObserveFloat64(load, s.DSPLoad)
		o.ObserveInt64(dropped, int64(s.EventsDropped))
		return nil
	}, blocks, overruns, frames, engaged, load, dropped)
}
