package midi

import (
	"errors"
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-stomp/stomp/param"
)

// Omni accepts messages on every channel.
const Omni = -1

// Default controller numbers.
const (
	DefaultFirstCC  = 20
	DefaultBypassCC = 102
)

// Kind is the type of a decoded command.
type Kind int

const (
	KindParam Kind = iota
	KindProgram
	KindBypass
)

func (k Kind) String() string {
	switch k {
	case KindParam:
		return "param"
	case KindProgram:
		return "program"
	case KindBypass:
		return "bypass"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Command is one decoded control request.
type Command struct {
	Kind    Kind
	Channel param.Channel
	Value   float64
	Program int
	Engage  bool
}

// Mapping assigns controller numbers to pedal functions.
type Mapping struct {
	// Channel is the zero-based MIDI channel, or Omni.
	Channel  int
	CC       [param.NumChannels]uint8
	BypassCC uint8
}

// DefaultMapping listens on channel 1 with CC 20-23 for the pots and
// expression and CC 102 for bypass.
func DefaultMapping() Mapping {
	m := Mapping{Channel: 0, BypassCC: DefaultBypassCC}
	for i := range m.CC {
		m.CC[i] = uint8(DefaultFirstCC + i)
	}
	return m
}

// Validate checks channel and controller ranges and collisions.
func (m Mapping) Validate() error {
	var errs []error
	if m.Channel != Omni && (m.Channel < 0 || m.Channel > 15) {
		errs = append(errs, fmt.Errorf("midi channel must be 0-15 or omni: %d", m.Channel))
	}
	seen := map[uint8]string{}
	check := func(cc uint8, name string) {
		if cc > 127 {
			errs = append(errs, fmt.Errorf("midi cc for %s must be 0-127: %d", name, cc))
			return
		}
		if other, ok := seen[cc]; ok {
			errs = append(errs, fmt.Errorf("midi cc %d assigned to %s and %s", cc, other, name))
			return
		}
		seen[cc] = name
	}
	for i, cc := range m.CC {
		check(cc, param.Channel(i).String())
	}
	check(m.BypassCC, "bypass")
	return errors.Join(errs...)
}

// Decode maps msg to a command.
func (m Mapping) Decode(msg gomidi.Message) (Command, bool) {
	var ch, ctl, val, prog uint8
	switch {
	case msg.GetControlChange(&ch, &ctl, &val):
		if !m.accepts(ch) {
			return Command{}, false
		}
		if ctl == m.BypassCC {
			return Command{Kind: KindBypass, Engage: val >= 64}, true
		}
		for i, cc := range m.CC {
			if cc == ctl {
				return Command{Kind: KindParam, Channel: param.Channel(i), Value: float64(val) / 127}, true
			}
		}
	case msg.GetProgramChange(&ch, &prog):
		if m.accepts(ch) {
			return Command{Kind: KindProgram, Program: int(prog)}, true
		}
	}
	return Command{}, false
}

func (m Mapping) accepts(ch uint8) bool {
	return m.Channel == Omni || int(ch) == m.Channel
}
