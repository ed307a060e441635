// Package hal defines the hardware collaborators of the pedal core and
// simulated implementations used by the host tools and tests.
package hal

import "github.com/cwbudde/algo-stomp/stomp/pcm"

// AudioSource supplies captured frames. ReadFrames fills frames and
// returns how many were written; io.EOF ends the stream.
type AudioSource interface {
	ReadFrames(frames []pcm.Frame) (int, error)
}

// AudioSink accepts frames for transmission.
type AudioSink interface {
	WriteFrames(frames []pcm.Frame) error
}

// AnalogInput reads raw converter values for the control channels.
type AnalogInput interface {
	ReadRaw(ch int) (int, error)
}

// DigitalInput reads the raw footswitch level.
type DigitalInput interface {
	Level() (bool, error)
}

// LED is the PWM output of the stomp LED.
type LED interface {
	SetDuty(duty uint16) error
}
