// Package clock provides the sample clock: a monotonic frame counter
// advanced by the audio capture driver and read from every other context.
package clock

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Clock counts audio frames since start. Only the capture side calls
// Advance; reads are single atomic loads and never tear.
type Clock struct {
	rate  uint64
	ticks atomic.Uint64
}

// New returns a clock for the given frame rate in Hz.
func New(sampleRate int) (*Clock, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("clock sample rate must be > 0: %d", sampleRate)
	}
	return &Clock{rate: uint64(sampleRate)}, nil
}

// SampleRate returns the frame rate in Hz.
func (c *Clock) SampleRate() int { return int(c.rate) }

// Advance moves the clock forward by n frames. Negative values are ignored.
func (c *Clock) Advance(frames int) {
	if frames > 0 {
		c.ticks.Add(uint64(frames))
	}
}

// Ticks returns the number of frames elapsed.
func (c *Clock) Ticks() uint64 { return c.ticks.Load() }

// Millis returns the elapsed time in whole milliseconds.
func (c *Clock) Millis() uint64 {
	return c.ticks.Load() * 1000 / c.rate
}

// Duration returns the elapsed time.
func (c *Clock) Duration() time.Duration {
	t := c.ticks.Load()
	sec := t / c.rate
	rem := t % c.rate
	return time.Duration(sec)*time.Second + time.Duration(rem*uint64(time.Second)/c.rate)
}

// TicksFor converts a duration to a whole number of frames, rounding down.
func (c *Clock) TicksFor(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d) * c.rate / uint64(time.Second)
}
