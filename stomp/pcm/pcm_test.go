package pcm

import (
	"math"
	"testing"
)

func TestFromFloatSaturates(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{0, 0},
		{0.5, 16384},
		{-1, MinSample},
		{1, MaxSample},
		{3.7, MaxSample},
		{-12, MinSample},
		{math.NaN(), 0},
		{math.Inf(1), MaxSample},
	}
	for _, tt := range tests {
		if got := FromFloat(tt.in); got != tt.want {
			t.Fatalf("FromFloat(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFloatRoundTripIsExact(t *testing.T) {
	for s := MinSample; s <= MaxSample; s += 7 {
		if got := FromFloat(ToFloat(int16(s))); got != int16(s) {
			t.Fatalf("round trip of %d gave %d", s, got)
		}
	}
}

func TestNewBlockValidation(t *testing.T) {
	if _, err := NewBlock(0, 0); err == nil {
		t.Fatal("expected error for zero frames")
	}
	if _, err := NewBlock(0, MaxBlockFrames+1); err == nil {
		t.Fatal("expected error for oversized block")
	}
	b, err := NewBlock(3, 48)
	if err != nil {
		t.Fatalf("NewBlock() error = %v", err)
	}
	if b.ID() != 3 || b.Len() != 48 || b.Owner() != OwnerCapture {
		t.Fatalf("unexpected block: id=%d len=%d owner=%v", b.ID(), b.Len(), b.Owner())
	}
}

func TestBlockTransfer(t *testing.T) {
	b, err := NewBlock(0, 4)
	if err != nil {
		t.Fatalf("NewBlock() error = %v", err)
	}
	if b.Transfer(OwnerReady, OwnerProcessing) {
		t.Fatal("transfer from wrong owner succeeded")
	}
	if !b.Transfer(OwnerCapture, OwnerReady) {
		t.Fatal("transfer from capture failed")
	}
	if b.Owner() != OwnerReady {
		t.Fatalf("owner = %v, want ready", b.Owner())
	}
}

func TestInterleaveRoundTrip(t *testing.T) {
	frames := []Frame{{1, -1}, {2, -2}, {3, -3}}
	buf := make([]int16, 6)
	if n := Interleave(buf, frames); n != 6 {
		t.Fatalf("Interleave() = %d, want 6", n)
	}
	want := []int16{1, -1, 2, -2, 3, -3}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf[%d] = %d, want %d", i, buf[i], want[i])
		}
	}

	out := make([]Frame, 3)
	if n := Deinterleave(out, buf[:5]); n != 2 {
		t.Fatalf("Deinterleave() of odd sample count = %d, want 2", n)
	}
	if out[1] != frames[1] {
		t.Fatalf("out[1] = %v, want %v", out[1], frames[1])
	}
}

func TestBlockSilenceAndEqual(t *testing.T) {
	a, _ := NewBlock(0, 2)
	b, _ := NewBlock(1, 2)
	a.Frames[0] = Frame{5, 6}
	if a.Equal(b) {
		t.Fatal("blocks with different data compare equal")
	}
	a.Silence()
	if !a.Equal(b) {
		t.Fatal("silenced block differs from zero block")
	}
}
