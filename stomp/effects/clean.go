package effects

import (
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

// Clean passes frames through unchanged.
type Clean struct{}

// Transform implements stage.Transform.
func (Clean) Transform(in pcm.Frame, _ param.Vector) pcm.Frame { return in }

// Controls returns no controls.
func (Clean) Controls() []param.Control { return nil }
