// Package tuner estimates the pitch of the input signal. The audio path
// feeds a Tap; an Analyzer on the slow loop turns the most recent window
// into a note reading.
package tuner

import (
	"fmt"
	"sync/atomic"
)

// Tap is an overwrite ring of mono samples with a single writer. Readers
// copy the most recent samples without blocking the writer.
type Tap struct {
	buf  []atomic.Int32
	mask uint64
	pos  atomic.Uint64
}

// NewTap returns a tap holding size samples. size must be a power of two.
func NewTap(size int) (*Tap, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("tuner tap size must be a power of two >= 2: %d", size)
	}
	return &Tap{
		buf:  make([]atomic.Int32, size),
		mask: uint64(size - 1),
	}, nil
}

// Size returns the capacity in samples.
func (t *Tap) Size() int { return len(t.buf) }

// Write appends one sample, overwriting the oldest.
func (t *Tap) Write(s int16) {
	p := t.pos.Load()
	t.buf[p&t.mask].Store(int32(s))
	t.pos.Store(p + 1)
}

// Written returns the number of samples written since creation.
func (t *Tap) Written() uint64 { return t.pos.Load() }

// Snapshot copies the newest len(dst) samples into dst in time order and
// returns how many were copied. Slots never written read as zero.
func (t *Tap) Snapshot(dst []int16) int {
	n := min(len(dst), len(t.buf))
	end := t.pos.Load()
	start := end - uint64(n)
	for i := range n {
		dst[i] = int16(t.buf[(start+uint64(i))&t.mask].Load())
	}
	return n
}
