// Package param acquires the three potentiometers and the expression
// input, smooths them, and publishes a normalized, versioned
// parameter vector that the audio path reads without blocking.
package param

import (
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-stomp/dsp/core"
)

// Channel identifies one analog control input.
type Channel int

const (
	Pot0 Channel = iota
	Pot1
	Pot2
	Expression
)

const (
	// NumPots is the number of physical potentiometers.
	NumPots = 3
	// NumChannels is the number of analog control inputs.
	NumChannels = NumPots + 1
)

var channelNames = [NumChannels]string{"pot0", "pot1", "pot2", "expression"}

func (c Channel) String() string {
	if c < 0 || int(c) >= NumChannels {
		return fmt.Sprintf("Channel(%d)", int(c))
	}
	return channelNames[c]
}

// ParseChannel maps a channel name back to its value.
func ParseChannel(name string) (Channel, error) {
	for i, n := range channelNames {
		if n == name {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown parameter channel %q", name)
}

// Sample is one raw reading tagged with its channel.
type Sample struct {
	Channel Channel
	Raw     int
}

// Vector is a published snapshot of all channels. Every value is in
// [0, 1]. Version increases by one for every publish.
type Vector struct {
	Values  [NumChannels]float64
	Version uint64
}

// Get returns the value of channel c, or 0 for an unknown channel.
func (v Vector) Get(c Channel) float64 {
	if c < 0 || int(c) >= NumChannels {
		return 0
	}
	return v.Values[c]
}

// Publisher holds the latest Vector. One goroutine publishes, any number
// of goroutines load. A published snapshot is never modified.
type Publisher struct {
	current atomic.Pointer[Vector]
}

// NewPublisher returns a publisher holding version 0 with the given
// initial values.
func NewPublisher(initial [NumChannels]float64) *Publisher {
	p := &Publisher{}
	v := &Vector{Values: clampAll(initial)}
	p.current.Store(v)
	return p
}

// Load returns the latest snapshot. It never blocks or allocates.
func (p *Publisher) Load() Vector {
	return *p.current.Load()
}

// Version returns the latest published version.
func (p *Publisher) Version() uint64 {
	return p.current.Load().Version
}

// Publish stores a new snapshot with the next version and returns it.
// Values are clamped to [0, 1]. Only one goroutine may call Publish.
func (p *Publisher) Publish(values [NumChannels]float64) Vector {
	prev := p.current.Load()
	next := &Vector{Values: clampAll(values), Version: prev.Version + 1}
	p.current.Store(next)
	return *next
}

func clampAll(values [NumChannels]float64) [NumChannels]float64 {
	for i, v := range values {
		values[i] = core.Unit(v)
	}
	return values
}
