// Package transport implements the double-buffered block exchange between
// the serial audio bus driver (capture side) and the effect stage
// (processing side).
//
// Exactly two blocks exist. The capture side always owns one of them; the
// other is in exactly one of three places: the ready slot (captured, not
// yet processed), held by the processing side, or the done slot
// (processed, waiting for transmission). Every hand-over is an atomic
// swap on a slot plus a compare-and-swap on the block's owner tag, so
// neither side ever blocks or waits on the other.
package transport

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

// ErrNotOwner is returned when a side hands over a block it does not own.
var ErrNotOwner = errors.New("transport: block not owned by caller")

// Transport exchanges pcm blocks between one capture goroutine and one
// processing goroutine.
type Transport struct {
	blocks [2]*pcm.Block

	ready atomic.Pointer[pcm.Block]
	done  atomic.Pointer[pcm.Block]

	seq       uint64 // capture side only
	submitted atomic.Uint64
	processed atomic.Uint64
	overruns  atomic.Uint64
}

// New allocates a transport whose blocks hold blockFrames frames each.
// Block 0 starts with the capture side; block 1 starts as silent output
// in the done slot.
func New(blockFrames int) (*Transport, error) {
	t := &Transport{}
	for i := range t.blocks {
		b, err := pcm.NewBlock(i, blockFrames)
		if err != nil {
			return nil, fmt.Errorf("transport: %w", err)
		}
		t.blocks[i] = b
	}

	if !t.blocks[1].Transfer(pcm.OwnerCapture, pcm.OwnerDone) {
		return nil, fmt.Errorf("transport: %w", ErrNotOwner)
	}
	t.done.Store(t.blocks[1])

	return t, nil
}

// BlockFrames returns the capacity of each block.
func (t *Transport) BlockFrames() int { return t.blocks[0].Len() }

// Initial returns the block the capture side fills first.
func (t *Transport) Initial() *pcm.Block { return t.blocks[0] }

// SubmitFilled hands a fully captured block to the processing side and
// returns the block the capture side transmits and refills next.
//
// When the processing side has not released its previous block, the
// oldest unprocessed block is dropped, silenced and counted as an
// overrun. If that block is already being processed, the just-captured
// block is the one dropped and handed straight back.
func (t *Transport) SubmitFilled(b *pcm.Block) (*pcm.Block, error) {
	if b == nil || b.Owner() != pcm.OwnerCapture {
		return nil, ErrNotOwner
	}

	t.seq++
	b.Seq = t.seq
	t.submitted.Add(1)

	next := t.done.Swap(nil)
	if next != nil {
		if !next.Transfer(pcm.OwnerDone, pcm.OwnerCapture) {
			return nil, ErrNotOwner
		}
		return t.publish(b, next)
	}

	stale := t.ready.Swap(nil)
	if stale != nil {
		if !stale.Transfer(pcm.OwnerReady, pcm.OwnerCapture) {
			return nil, ErrNotOwner
		}
		t.overruns.Add(1)
		stale.Silence()
		return t.publish(b, stale)
	}

	// The other block is held by the processing side.
	t.overruns.Add(1)
	b.Silence()
	return b, nil
}

func (t *Transport) publish(filled, next *pcm.Block) (*pcm.Block, error) {
	if !filled.Transfer(pcm.OwnerCapture, pcm.OwnerReady) {
		return nil, ErrNotOwner
	}
	t.ready.Store(filled)
	return next, nil
}

// AcquireForProcessing returns the most recently captured block, or false
// when nothing new is ready.
func (t *Transport) AcquireForProcessing() (*pcm.Block, bool) {
	b := t.ready.Swap(nil)
	if b == nil {
		return nil, false
	}
	if !b.Transfer(pcm.OwnerReady, pcm.OwnerProcessing) {
		return nil, false
	}
	return b, true
}

// ReleaseProcessed returns a fully processed block for transmission.
func (t *Transport) ReleaseProcessed(b *pcm.Block) error {
	if b == nil || !b.Transfer(pcm.OwnerProcessing, pcm.OwnerDone) {
		return ErrNotOwner
	}
	t.processed.Add(1)
	t.done.Store(b)
	return nil
}

// Stats is a point-in-time copy of the transport counters.
type Stats struct {
	Submitted uint64
	Processed uint64
	Overruns  uint64
}

// Stats returns the current counters.
func (t *Transport) Stats() Stats {
	return Stats{
		Submitted: t.submitted.Load(),
		Processed: t.processed.Load(),
		Overruns:  t.overruns.Load(),
	}
}

// Overruns returns the number of dropped blocks.
func (t *Transport) Overruns() uint64 { return t.overruns.Load() }
