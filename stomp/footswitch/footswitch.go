// Package footswitch debounces the stomp switch and classifies presses
// as short (toggle) or long (secondary action).
package footswitch

import (
	"fmt"
	"time"
)

const (
	// LongPressThreshold is the hold time that turns a press into a long
	// press.
	LongPressThreshold = 400 * time.Millisecond
	// DefaultDebounce is the lockout after an accepted edge.
	DefaultDebounce = 10 * time.Millisecond
)

// State is the debounced switch state.
type State int

const (
	// Released is the idle state.
	Released State = iota
	// Pressed means a press was accepted and the debounce lockout is
	// still running.
	Pressed
	// HeldShort means the switch is held past the lockout but below the
	// long-press threshold.
	HeldShort
	// HeldLong means the long press has been reported.
	HeldLong
)

func (s State) String() string {
	switch s {
	case Released:
		return "released"
	case Pressed:
		return "pressed"
	case HeldShort:
		return "held-short"
	case HeldLong:
		return "held-long"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event is an edge-triggered switch event.
type Event int

const (
	// None means the sample produced no event.
	None Event = iota
	// ShortPressReleased is emitted when a press shorter than the
	// long-press threshold is released.
	ShortPressReleased
	// LongPressReached is emitted once when a press reaches the
	// long-press threshold.
	LongPressReached
)

func (e Event) String() string {
	switch e {
	case None:
		return "none"
	case ShortPressReleased:
		return "short-press"
	case LongPressReached:
		return "long-press"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// Option configures a Controller.
type Option func(*config) error

type config struct {
	debounce  time.Duration
	longPress time.Duration
	activeLow bool
}

// WithDebounce sets the lockout window after an accepted edge. The switch
// is sampled in whole milliseconds, so d must be at least 1 ms and a
// fractional remainder rounds up.
func WithDebounce(d time.Duration) Option {
	return func(cfg *config) error {
		if d < time.Millisecond {
			return fmt.Errorf("footswitch debounce must be >= 1ms: %v", d)
		}
		cfg.debounce = d
		return nil
	}
}

// WithLongPress overrides the long-press threshold.
func WithLongPress(d time.Duration) Option {
	return func(cfg *config) error {
		if d < time.Millisecond {
			return fmt.Errorf("footswitch long press must be >= 1ms: %v", d)
		}
		cfg.longPress = d
		return nil
	}
}

// WithActiveLow selects the wiring polarity. Active low (a pull-up with
// the switch to ground) reads false while pressed.
func WithActiveLow(activeLow bool) Option {
	return func(cfg *config) error {
		cfg.activeLow = activeLow
		return nil
	}
}

// Controller is the switch state machine. It runs on the slow loop and is
// not safe for concurrent use.
type Controller struct {
	debounceMs uint64
	longMs     uint64
	activeLow  bool

	state      State
	pressStart uint64
	lastEdge   uint64
	seenEdge   bool
}

// New returns a controller in the Released state.
func New(opts ...Option) (*Controller, error) {
	cfg := config{
		debounce:  DefaultDebounce,
		longPress: LongPressThreshold,
		activeLow: true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.debounce >= cfg.longPress {
		return nil, fmt.Errorf("footswitch debounce %v must be shorter than long press %v", cfg.debounce, cfg.longPress)
	}

	return &Controller{
		debounceMs: ceilMs(cfg.debounce),
		longMs:     ceilMs(cfg.longPress),
		activeLow:  cfg.activeLow,
	}, nil
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// PressStart returns the timestamp in milliseconds of the current or last
// accepted press.
func (c *Controller) PressStart() uint64 { return c.pressStart }

// Pressed converts a raw GPIO level to a logical press.
func (c *Controller) Pressed(level bool) bool { return level != c.activeLow }

// Update feeds one raw GPIO level sampled at nowMs and returns the event
// produced by this sample, if any.
func (c *Controller) Update(level bool, nowMs uint64) Event {
	pressed := c.Pressed(level)
	locked := c.seenEdge && since(nowMs, c.lastEdge) < c.debounceMs

	switch c.state {
	case Released:
		if pressed && !locked {
			c.state = Pressed
			c.pressStart = nowMs
			c.edge(nowMs)
		}
		return None

	case Pressed, HeldShort:
		if locked {
			return None
		}
		if !pressed {
			c.state = Released
			c.edge(nowMs)
			return ShortPressReleased
		}
		c.state = HeldShort
		if since(nowMs, c.pressStart) >= c.longMs {
			c.state = HeldLong
			return LongPressReached
		}
		return None

	case HeldLong:
		if !pressed {
			c.state = Released
			c.edge(nowMs)
		}
		return None
	}

	return None
}

func (c *Controller) edge(nowMs uint64) {
	c.lastEdge = nowMs
	c.seenEdge = true
}

func ceilMs(d time.Duration) uint64 {
	return uint64((d + time.Millisecond - 1) / time.Millisecond)
}

func since(now, then uint64) uint64 {
	if now < then {
		return 0
	}
	return now - then
}
