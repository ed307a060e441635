// Package playback sends frames to the host speaker.
package playback

import (
	"encoding/binary"

	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

// encode appends frames as interleaved little-endian int16.
func encode(dst []byte, frames []pcm.Frame) []byte {
	for _, f := range frames {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(f[0]))
		dst = binary.LittleEndian.AppendUint16(dst, uint16(f[1]))
	}
	return dst
}
