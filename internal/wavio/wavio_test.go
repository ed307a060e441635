package wavio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

func writeFile(t *testing.T, frames []pcm.Frame, rate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	sink, err := NewSink(f, rate)
	if err != nil {
		t.Fatalf("NewSink() error = %v", err)
	}
	// Two writes exercise buffer reuse.
	half := len(frames) / 2
	if err := sink.WriteFrames(frames[:half]); err != nil {
		t.Fatalf("WriteFrames() error = %v", err)
	}
	if err := sink.WriteFrames(frames[half:]); err != nil {
		t.Fatalf("WriteFrames() error = %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	want := make([]pcm.Frame, 1000)
	for i := range want {
		want[i] = pcm.Frame{int16(i*37 - 16000), int16(-i * 13)}
	}
	want[0] = pcm.Frame{pcm.MaxSample, pcm.MinSample}
	path := writeFile(t, want, 44100)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	src, err := NewSource(f, 64)
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	if src.SampleRate() != 44100 || src.Channels() != 2 {
		t.Fatalf("SampleRate() = %d Channels() = %d", src.SampleRate(), src.Channels())
	}

	var got []pcm.Frame
	buf := make([]pcm.Frame, 48)
	for {
		n, err := src.ReadFrames(buf)
		got = append(got, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrames() error = %v", err)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := NewSource(bytes.NewReader([]byte("not a riff file at all")), 48); err == nil {
		t.Fatal("NewSource() expected error")
	}
	if _, err := NewSource(bytes.NewReader(nil), 0); err == nil {
		t.Fatal("NewSource() expected chunk error")
	}
}

func TestSampleScaling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		shift int
		in    int
		want  int16
	}{
		{0, 1234, 1234},
		{8, 0x7fffff, pcm.MaxSample},
		{8, -0x800000, pcm.MinSample},
		{16, 1 << 20, 16},
		{-8, 255, 127 << 8},
		{-8, 0, -128 << 8},
	}
	for _, tt := range tests {
		s := &Source{shift: tt.shift}
		if got := s.sample(tt.in); got != tt.want {
			t.Errorf("sample(%d) with shift %d = %d, want %d", tt.in, tt.shift, got, tt.want)
		}
	}
}
