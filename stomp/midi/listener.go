package midi

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"
)

const defaultQueue = 64

// Listener decodes a byte stream on its own goroutine and queues the
// resulting commands for the control loop.
type Listener struct {
	mapping Mapping
	logger  *slog.Logger

	cmds     chan Command
	received atomic.Uint64
	dropped  atomic.Uint64
}

// NewListener returns a listener for mapping. A nil logger discards.
func NewListener(mapping Mapping, logger *slog.Logger) (*Listener, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Listener{
		mapping: mapping,
		logger:  logger,
		cmds:    make(chan Command, defaultQueue),
	}, nil
}

// Run reads r until EOF, a read error or ctx is done. The read in flight
// is not interrupted; close r to stop promptly.
func (l *Listener) Run(ctx context.Context, r io.Reader) error {
	var p Parser
	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if msg, ok := p.Feed(b); ok {
			l.Handle(msg)
		}
	}
}

// Handle decodes one message and queues the command, if any.
func (l *Listener) Handle(msg gomidi.Message) {
	cmd, ok := l.mapping.Decode(msg)
	if !ok {
		return
	}
	l.received.Add(1)
	select {
	case l.cmds <- cmd:
		l.logger.Debug("midi command", "kind", cmd.Kind, "msg", msg.String())
	default:
		l.dropped.Add(1)
	}
}

// Poll returns the next queued command without blocking.
func (l *Listener) Poll() (Command, bool) {
	select {
	case cmd := <-l.cmds:
		return cmd, true
	default:
		return Command{}, false
	}
}

// Received returns how many commands were decoded.
func (l *Listener) Received() uint64 { return l.received.Load() }

// Dropped returns how many commands were lost to a full queue.
func (l *Listener) Dropped() uint64 { return l.dropped.Load() }
