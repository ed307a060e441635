// Package wavio reads and writes stereo 16-bit frames as WAV files.
package wavio

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

// ErrInvalid is returned for input that is not a PCM WAV file.
var ErrInvalid = errors.New("wavio: not a PCM wav file")

// Source decodes a WAV stream into frames. Mono input is duplicated to
// both channels; other bit depths are rescaled to 16 bits.
type Source struct {
	dec      *wav.Decoder
	chans    int
	shift    int
	rate     int
	buf      *audio.IntBuffer
	pending  []int
	finished bool
}

// NewSource validates r and prepares decoding in chunks of chunkFrames.
func NewSource(r io.ReadSeeker, chunkFrames int) (*Source, error) {
	if chunkFrames < 1 {
		return nil, fmt.Errorf("wavio chunk frames must be >= 1: %d", chunkFrames)
	}
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalid
	}
	chans := int(dec.NumChans)
	if chans < 1 || chans > 2 {
		return nil, fmt.Errorf("wavio: unsupported channel count %d", chans)
	}
	depth := int(dec.BitDepth)
	if depth != 8 && depth != 16 && depth != 24 && depth != 32 {
		return nil, fmt.Errorf("wavio: unsupported bit depth %d", depth)
	}
	return &Source{
		dec:   dec,
		chans: chans,
		shift: depth - pcm.BitsPerSample,
		rate:  int(dec.SampleRate),
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: chans, SampleRate: int(dec.SampleRate)},
			Data:   make([]int, chunkFrames*chans),
		},
	}, nil
}

// SampleRate returns the file rate in Hz.
func (s *Source) SampleRate() int { return s.rate }

// Channels returns the file channel count.
func (s *Source) Channels() int { return s.chans }

// ReadFrames fills frames and returns io.EOF once the data is exhausted.
func (s *Source) ReadFrames(frames []pcm.Frame) (int, error) {
	n := 0
	for n < len(frames) {
		if len(s.pending) < s.chans {
			if s.finished {
				break
			}
			if err := s.fill(); err != nil {
				return n, err
			}
			continue
		}
		l := s.sample(s.pending[0])
		r := l
		if s.chans == 2 {
			r = s.sample(s.pending[1])
		}
		frames[n] = pcm.Frame{l, r}
		s.pending = s.pending[s.chans:]
		n++
	}
	if n == 0 && s.finished {
		return 0, io.EOF
	}
	return n, nil
}

func (s *Source) fill() error {
	s.buf.Data = s.buf.Data[:cap(s.buf.Data)]
	got, err := s.dec.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("wavio: decode: %w", err)
	}
	if got == 0 {
		s.finished = true
		return nil
	}
	got -= got % s.chans
	s.pending = s.buf.Data[:got]
	return nil
}

func (s *Source) sample(v int) int16 {
	switch {
	case s.shift > 0:
		v >>= s.shift
	case s.shift < 0:
		// 8-bit WAV is unsigned.
		v = (v - 128) << -s.shift
	}
	return int16(max(min(v, pcm.MaxSample), pcm.MinSample))
}

// Sink encodes frames as a 16-bit stereo WAV file. Close finalises the
// header and must be called.
type Sink struct {
	enc *wav.Encoder
	buf *audio.IntBuffer
}

// NewSink starts a WAV file on w.
func NewSink(w io.WriteSeeker, sampleRate int) (*Sink, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("wavio sample rate must be > 0: %d", sampleRate)
	}
	return &Sink{
		enc: wav.NewEncoder(w, sampleRate, pcm.BitsPerSample, pcm.Channels, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: pcm.Channels, SampleRate: sampleRate},
			SourceBitDepth: pcm.BitsPerSample,
		},
	}, nil
}

// WriteFrames appends frames.
func (s *Sink) WriteFrames(frames []pcm.Frame) error {
	s.buf.Data = s.buf.Data[:0]
	for _, f := range frames {
		s.buf.Data = append(s.buf.Data, int(f[0]), int(f[1]))
	}
	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("wavio: encode: %w", err)
	}
	return nil
}

// Close writes the final header.
func (s *Sink) Close() error {
	if err := s.enc.Close(); err != nil {
		return fmt.Errorf("wavio: close: %w", err)
	}
	return nil
}
