// Package pcm defines the audio frame and block types exchanged between
// the serial audio bus and the effect stage.
//
// The format is fixed at build time: interleaved stereo, 16-bit signed
// PCM at 48 kHz.
package pcm

import (
	"fmt"
	"math"
	"sync/atomic"
)

const (
	// SampleRate is the audio frame rate in Hz.
	SampleRate = 48000
	// BitsPerSample is the width of one PCM sample.
	BitsPerSample = 16
	// Channels is the number of samples per frame.
	Channels = 2

	// MinSample and MaxSample bound a 16-bit signed sample.
	MinSample = math.MinInt16
	MaxSample = math.MaxInt16

	// MaxBlockFrames bounds the block capacity.
	MaxBlockFrames = 4096
)

// Frame is one sample per channel, exchanged as a unit.
type Frame [Channels]int16

// ToFloat converts a sample to [-1, 1).
func ToFloat(s int16) float64 {
	return float64(s) / 32768
}

// FromFloat converts a float sample back to PCM, rounding to nearest and
// saturating at the int16 range. NaN maps to 0.
func FromFloat(x float64) int16 {
	if math.IsNaN(x) {
		return 0
	}
	v := math.Round(x * 32768)
	if v > MaxSample {
		return MaxSample
	}
	if v < MinSample {
		return MinSample
	}
	return int16(v)
}

// Owner identifies which side of the transport holds a block.
type Owner int32

const (
	// OwnerCapture means the bus driver is transmitting and refilling it.
	OwnerCapture Owner = iota
	// OwnerReady means it is fully captured and waiting for processing.
	OwnerReady
	// OwnerProcessing means the effect stage holds it.
	OwnerProcessing
	// OwnerDone means it is processed and waiting for transmission.
	OwnerDone
)

func (o Owner) String() string {
	switch o {
	case OwnerCapture:
		return "capture"
	case OwnerReady:
		return "ready"
	case OwnerProcessing:
		return "processing"
	case OwnerDone:
		return "done"
	default:
		return fmt.Sprintf("Owner(%d)", int32(o))
	}
}

// Block is a fixed-length run of frames exchanged as one transfer unit.
// Frames has fixed length for the life of the block.
type Block struct {
	Frames []Frame
	// Seq is the capture sequence number of the data it holds.
	Seq uint64

	id    int
	owner atomic.Int32
}

// NewBlock allocates a block of n frames with the given identity.
func NewBlock(id, n int) (*Block, error) {
	if n <= 0 || n > MaxBlockFrames {
		return nil, fmt.Errorf("block frames must be in [1, %d]: %d", MaxBlockFrames, n)
	}
	return &Block{Frames: make([]Frame, n), id: id}, nil
}

// ID returns the block identity.
func (b *Block) ID() int { return b.id }

// Len returns the number of frames.
func (b *Block) Len() int { return len(b.Frames) }

// Owner returns the current owner tag.
func (b *Block) Owner() Owner { return Owner(b.owner.Load()) }

// Transfer moves ownership from one side to another. It reports false
// without changing anything when the block is not owned by from.
func (b *Block) Transfer(from, to Owner) bool {
	return b.owner.CompareAndSwap(int32(from), int32(to))
}

// Silence zeroes every frame.
func (b *Block) Silence() {
	clear(b.Frames)
}

// Equal reports whether two blocks hold identical frames.
func (b *Block) Equal(other *Block) bool {
	if len(b.Frames) != len(other.Frames) {
		return false
	}
	for i := range b.Frames {
		if b.Frames[i] != other.Frames[i] {
			return false
		}
	}
	return true
}

// Interleave writes frames into dst as L, R, L, R... and returns the
// number of samples written.
func Interleave(dst []int16, frames []Frame) int {
	n := min(len(dst)/Channels, len(frames))
	for i := range n {
		for ch := range Channels {
			dst[i*Channels+ch] = frames[i][ch]
		}
	}
	return n * Channels
}

// Deinterleave reads interleaved samples into frames and returns the
// number of complete frames read.
func Deinterleave(frames []Frame, src []int16) int {
	n := min(len(src)/Channels, len(frames))
	for i := range n {
		for ch := range Channels {
			frames[i][ch] = src[i*Channels+ch]
		}
	}
	return n
}
