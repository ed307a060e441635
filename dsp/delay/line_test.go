package delay

import (
	"math"
	"testing"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for size=0")
	}

	if _, err := New(-1); err == nil {
		t.Fatal("expected error for size=-1")
	}
}

func TestReadWrite(t *testing.T) {
	d, err := New(8)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 8; i++ {
		d.Write(float64(i))
	}

	for delay := 1; delay <= 8; delay++ {
		want := float64(9 - delay)
		if got := d.Read(delay); got != want {
			t.Fatalf("Read(%d) = %v, want %v", delay, got, want)
		}
	}
}

func TestReadClampsDelay(t *testing.T) {
	d, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 4; i++ {
		d.Write(float64(i))
	}

	if got := d.Read(0); got != 4 {
		t.Fatalf("Read(0) = %v, want newest sample 4", got)
	}
	if got := d.Read(100); got != 1 {
		t.Fatalf("Read(100) = %v, want oldest sample 1", got)
	}
}

func TestReadLinear(t *testing.T) {
	d, err := New(16)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 16 {
		d.Write(float64(i))
	}

	// Read(1) = 15, Read(2) = 14.
	got := d.ReadLinear(1.25)
	if math.Abs(got-14.75) > 1e-12 {
		t.Fatalf("ReadLinear(1.25) = %v, want 14.75", got)
	}
	if got := d.ReadLinear(math.NaN()); got != 15 {
		t.Fatalf("ReadLinear(NaN) = %v, want 15", got)
	}
}

func TestReset(t *testing.T) {
	d, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	d.Write(1)
	d.Write(2)
	d.Reset()
	for delay := 1; delay <= 4; delay++ {
		if got := d.Read(delay); got != 0 {
			t.Fatalf("Read(%d) after Reset = %v, want 0", delay, got)
		}
	}
}

func BenchmarkLineReadLinear(b *testing.B) {
	d, err := New(48000)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < b.N; i++ {
		d.Write(float64(i))
		_ = d.ReadLinear(12345.5)
	}
}
