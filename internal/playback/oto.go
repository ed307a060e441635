//go:build !headless

package playback

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

// Available reports whether this build can play audio.
const Available = true

// Speaker plays frames through the default output device. WriteFrames
// blocks while the device buffer is full, so it paces the caller.
type Speaker struct {
	ctx    *oto.Context
	player *oto.Player
	pw     *io.PipeWriter
	buf    []byte

	mu     sync.Mutex
	closed bool
}

// Open starts a stereo 16-bit output stream at sampleRate.
func Open(sampleRate int) (*Speaker, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: pcm.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("playback: %w", err)
	}
	<-ready

	pr, pw := io.Pipe()
	s := &Speaker{ctx: ctx, pw: pw, player: ctx.NewPlayer(pr)}
	s.player.Play()
	return s, nil
}

// WriteFrames queues frames for playback.
func (s *Speaker) WriteFrames(frames []pcm.Frame) error {
	s.buf = encode(s.buf[:0], frames)
	if _, err := s.pw.Write(s.buf); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	return nil
}

// Close stops playback.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.pw.Close()
	return s.player.Close()
}
