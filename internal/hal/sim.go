package hal

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// faults holds an injectable error shared by the simulated devices.
type faults struct {
	mu  sync.Mutex
	err error
}

func (f *faults) set(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *faults) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// SimADC is an analog input whose raw values are set by the caller.
type SimADC struct {
	raw [4]atomic.Int64
	faults
}

// NewSimADC returns a simulated converter with every channel at raw.
func NewSimADC(raw int) *SimADC {
	a := &SimADC{}
	for i := range a.raw {
		a.raw[i].Store(int64(raw))
	}
	return a
}

// Set stores a raw value for channel ch. Out-of-range values are kept
// as-is to model a floating input.
func (a *SimADC) Set(ch, raw int) {
	if ch >= 0 && ch < len(a.raw) {
		a.raw[ch].Store(int64(raw))
	}
}

// Get returns the raw value of channel ch.
func (a *SimADC) Get(ch int) int {
	if ch < 0 || ch >= len(a.raw) {
		return 0
	}
	return int(a.raw[ch].Load())
}

// SetError makes every read fail with err until cleared with nil.
func (a *SimADC) SetError(err error) { a.set(err) }

// ReadRaw implements AnalogInput.
func (a *SimADC) ReadRaw(ch int) (int, error) {
	if err := a.get(); err != nil {
		return 0, err
	}
	if ch < 0 || ch >= len(a.raw) {
		return 0, fmt.Errorf("adc channel out of range: %d", ch)
	}
	return int(a.raw[ch].Load()), nil
}

// SimSwitch is a footswitch input. It models active-low wiring: Level
// reads false while pressed.
type SimSwitch struct {
	pressed atomic.Bool
	faults
}

// Press holds the switch down.
func (s *SimSwitch) Press() { s.pressed.Store(true) }

// Release lets the switch up.
func (s *SimSwitch) Release() { s.pressed.Store(false) }

// Toggle flips the physical position and returns the new one.
func (s *SimSwitch) Toggle() bool {
	for {
		old := s.pressed.Load()
		if s.pressed.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// IsPressed reports the physical position.
func (s *SimSwitch) IsPressed() bool { return s.pressed.Load() }

// SetError makes Level fail with err until cleared with nil.
func (s *SimSwitch) SetError(err error) { s.set(err) }

// Level implements DigitalInput.
func (s *SimSwitch) Level() (bool, error) {
	if err := s.get(); err != nil {
		return false, err
	}
	return !s.pressed.Load(), nil
}

// SimLED records the last duty written.
type SimLED struct {
	duty   atomic.Uint32
	writes atomic.Uint64
	faults
}

// SetDuty implements LED.
func (l *SimLED) SetDuty(duty uint16) error {
	if err := l.get(); err != nil {
		return err
	}
	l.duty.Store(uint32(duty))
	l.writes.Add(1)
	return nil
}

// Duty returns the last duty written.
func (l *SimLED) Duty() uint16 { return uint16(l.duty.Load()) }

// Writes returns the number of successful writes.
func (l *SimLED) Writes() uint64 { return l.writes.Load() }

// SetError makes writes fail with err until cleared with nil.
func (l *SimLED) SetError(err error) { l.set(err) }
