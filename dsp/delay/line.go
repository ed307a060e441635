// Package delay provides a fixed-size circular delay line.
package delay

import (
	"fmt"
	"math"
)

// Line is a circular delay line. Its storage is allocated once in New;
// Write and the Read methods never allocate.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line holding size samples.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay size must be > 0: %d", size)
	}
	return &Line{buffer: make([]float64, size)}, nil
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// Write writes one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read returns the sample written delay samples ago. Read(1) is the most
// recent write. Delays outside [1, Len] are clamped.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	if delay < 1 {
		delay = 1
	}
	if delay > size {
		delay = size
	}
	readPos := d.writePos - delay
	if readPos < 0 {
		readPos += size
	}
	return d.buffer[readPos]
}

// ReadLinear reads a fractional delay with linear interpolation.
func (d *Line) ReadLinear(delay float64) float64 {
	maxDelay := float64(len(d.buffer) - 1)
	if delay < 1 || math.IsNaN(delay) {
		delay = 1
	}
	if delay > maxDelay {
		delay = maxDelay
	}

	p := int(delay)
	frac := delay - float64(p)
	a := d.Read(p)
	if frac == 0 {
		return a
	}
	b := d.Read(p + 1)
	return a + (b-a)*frac
}

// Reset clears line state.
func (d *Line) Reset() {
	clear(d.buffer)
	d.writePos = 0
}
