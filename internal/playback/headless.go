//go:build headless

package playback

import (
	"errors"

	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

// Available reports whether this build can play audio.
const Available = false

// ErrUnavailable is returned by Open in headless builds.
var ErrUnavailable = errors.New("playback: built without audio output")

// Speaker is a stub in headless builds.
type Speaker struct{}

// Open always fails in headless builds.
func Open(int) (*Speaker, error) { return nil, ErrUnavailable }

// WriteFrames discards frames.
func (*Speaker) WriteFrames([]pcm.Frame) error { return nil }

// Close does nothing.
func (*Speaker) Close() error { return nil }
