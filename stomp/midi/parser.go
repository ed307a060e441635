// Package midi turns a raw MIDI byte stream into pedal commands:
// parameter overrides, program selection and remote bypass.
package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Parser frames a raw byte stream into complete messages with gomidi's
// stream reader, which tracks running status, passes real-time bytes
// through immediately and skips system exclusive data. The zero value is
// ready to use.
type Parser struct {
	r    *drivers.Reader
	buf  [1]byte
	msg  gomidi.Message
	done bool
}

func (p *Parser) init() {
	p.r = drivers.NewReader(drivers.ListenConfig{}, func(b []byte, _ int32) {
		if len(b) == 0 || b[0] == 0xF7 {
			return
		}
		// The reader pads short messages with zeros.
		n := min(len(b), 1+dataLen(b[0]))
		p.msg = gomidi.Message(append([]byte(nil), b[:n]...))
		p.done = true
	})
}

// dataLen returns how many data bytes follow status.
func dataLen(status byte) int {
	switch {
	case status >= 0x80 && status < 0xC0, status >= 0xE0 && status < 0xF0:
		return 2
	case status >= 0xC0 && status < 0xE0:
		return 1
	case status == 0xF1, status == 0xF3:
		return 1
	case status == 0xF2:
		return 2
	default:
		return 0
	}
}

// Feed consumes one byte and returns a message once one is complete.
func (p *Parser) Feed(b byte) (gomidi.Message, bool) {
	if p.r == nil {
		p.init()
	}
	p.done = false
	p.buf[0] = b
	p.r.EachMessage(p.buf[:], 0)
	if !p.done {
		return nil, false
	}
	return p.msg, true
}
