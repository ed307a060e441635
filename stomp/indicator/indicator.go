// Package indicator drives the stomp LED from the effect state, with a
// short blink pattern for the secondary action and a continuous fast
// blink while a peripheral is faulted.
package indicator

import (
	"math"

	"github.com/cwbudde/algo-stomp/dsp/core"
	"github.com/cwbudde/algo-stomp/stomp/stage"
)

const (
	// FullDuty is the PWM duty for a fully lit LED.
	FullDuty = math.MaxUint16

	defaultFlashBlinks   = 3
	defaultFlashPeriodMs = 60
	faultHalfPeriodMs    = 125
)

// LED is the PWM sink the indicator writes to.
type LED interface {
	SetDuty(duty uint16) error
}

// Option configures an Indicator.
type Option func(*Indicator)

// WithFlash sets the number of blinks and the blink period shown on a
// long press.
func WithFlash(blinks int, periodMs uint64) Option {
	return func(i *Indicator) {
		if blinks > 0 {
			i.flashBlinks = blinks
		}
		if periodMs > 1 {
			i.flashPeriod = periodMs
		}
	}
}

// WithLevelSource lets an effect drive the brightness while engaged. The
// source returns a level in [0, 1] and whether it currently applies.
func WithLevelSource(src func() (float64, bool)) Option {
	return func(i *Indicator) {
		i.level = src
	}
}

// Indicator renders state onto an LED. It runs on the slow loop and is
// not safe for concurrent use.
type Indicator struct {
	led         LED
	flashBlinks int
	flashPeriod uint64
	level       func() (float64, bool)

	flashing   bool
	flashStart uint64
	fault      error

	duty    uint16
	written bool
}

// New returns an indicator writing to led.
func New(led LED, opts ...Option) *Indicator {
	i := &Indicator{
		led:         led,
		flashBlinks: defaultFlashBlinks,
		flashPeriod: defaultFlashPeriodMs,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// SetLevelSource replaces the effect level source; nil disables it.
func (i *Indicator) SetLevelSource(src func() (float64, bool)) {
	i.level = src
}

// Flash starts the secondary-action blink pattern at nowMs.
func (i *Indicator) Flash(nowMs uint64) {
	i.flashing = true
	i.flashStart = nowMs
}

// Fault switches to the fault pattern until ClearFault.
func (i *Indicator) Fault(err error) {
	i.fault = err
}

// ClearFault leaves the fault pattern.
func (i *Indicator) ClearFault() {
	i.fault = nil
}

// Faulted returns the error shown by the fault pattern, if any.
func (i *Indicator) Faulted() error { return i.fault }

// Duty returns the last duty written.
func (i *Indicator) Duty() uint16 { return i.duty }

// Update computes the duty for nowMs and writes it when it changed.
func (i *Indicator) Update(nowMs uint64, s stage.State) error {
	duty := i.compute(nowMs, s)
	if i.written && duty == i.duty {
		return nil
	}
	if err := i.led.SetDuty(duty); err != nil {
		return err
	}
	i.duty = duty
	i.written = true
	return nil
}

func (i *Indicator) compute(nowMs uint64, s stage.State) uint16 {
	if i.fault != nil {
		if (nowMs/faultHalfPeriodMs)%2 == 0 {
			return FullDuty
		}
		return 0
	}

	if i.flashing {
		elapsed := nowMs - i.flashStart
		if nowMs >= i.flashStart && elapsed < uint64(i.flashBlinks)*i.flashPeriod {
			// Blink against the base level so it shows in both states.
			on := elapsed%i.flashPeriod < i.flashPeriod/2
			if on == (s == stage.Bypassed) {
				return FullDuty
			}
			return 0
		}
		i.flashing = false
	}

	if s == stage.Bypassed {
		return 0
	}
	if i.level != nil {
		if lvl, ok := i.level(); ok {
			return uint16(math.Round(core.Unit(lvl) * FullDuty))
		}
	}
	return FullDuty
}
