package pedal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/cwbudde/algo-stomp/internal/hal"
	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

// Initial returns the first block the capture driver fills.
func (r *Runtime) Initial() *pcm.Block { return r.transport.Initial() }

// Capture submits a filled block, advances the clock by its length and
// returns the block to transmit and refill next.
func (r *Runtime) Capture(b *pcm.Block) (*pcm.Block, error) {
	next, err := r.transport.SubmitFilled(b)
	if err != nil {
		return nil, err
	}
	r.clock.Advance(b.Len())
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return next, nil
}

// ServiceAudio processes the next captured block, if any. It belongs to
// the processing goroutine.
func (r *Runtime) ServiceAudio() (bool, error) {
	start := time.Now()
	ok, err := r.stage.Service(r.transport)
	if !ok || err != nil {
		return ok, err
	}

	budget := float64(r.cfg.blockFrames) / float64(r.cfg.sampleRate)
	load := time.Since(start).Seconds() / budget
	prev := math.Float64frombits(r.dspLoad.Load())
	r.dspLoad.Store(math.Float64bits(prev + (load-prev)*0.05))
	return true, nil
}

// BlockDuration returns the real-time length of one block.
func (r *Runtime) BlockDuration() time.Duration {
	return time.Duration(r.cfg.blockFrames) * time.Second / time.Duration(r.cfg.sampleRate)
}

// DriverOptions controls RunDriver.
type DriverOptions struct {
	// Pace waits one block duration per block, as the audio bus would.
	Pace bool

	// Synchronous processes every block and runs the control loop inline
	// right after capture, for deterministic offline rendering. RunProcessor
	// and RunControl must not run alongside.
	Synchronous bool

	// OnTick is called in synchronous mode before the control poll of
	// every elapsed millisecond.
	OnTick func(nowMs uint64)
}

// RunDriver is the capture side: it fills blocks from src, submits them
// and writes the returned blocks to sink until src ends or ctx is done.
func (r *Runtime) RunDriver(ctx context.Context, src hal.AudioSource, sink hal.AudioSink, opts DriverOptions) error {
	var ticker *time.Ticker
	if opts.Pace {
		ticker = time.NewTicker(r.BlockDuration())
		defer ticker.Stop()
	}

	b := r.Initial()
	polled := r.clock.Millis()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		n, err := src.ReadFrames(b.Frames)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("audio source: %w", err)
		}
		if n == 0 && err != nil {
			return nil
		}
		clear(b.Frames[n:])

		next, serr := r.Capture(b)
		if serr != nil {
			return fmt.Errorf("audio transport: %w", serr)
		}

		if opts.Synchronous {
			if _, perr := r.ServiceAudio(); perr != nil {
				return fmt.Errorf("audio processing: %w", perr)
			}
			now := r.clock.Millis()
			for ; polled < now; polled++ {
				if opts.OnTick != nil {
					opts.OnTick(polled + 1)
				}
				if perr := r.Poll(polled + 1); perr != nil {
					return perr
				}
			}
		}

		if werr := sink.WriteFrames(next.Frames); werr != nil {
			return fmt.Errorf("audio sink: %w", werr)
		}
		b = next

		if err != nil {
			return nil
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}

// Flush pushes silent blocks through a synchronous pipeline so the last
// captured audio reaches sink.
func (r *Runtime) Flush(ctx context.Context, sink hal.AudioSink) error {
	return r.RunDriver(ctx, &silentBlocks{remaining: r.cfg.blockFrames}, sink, DriverOptions{Synchronous: true})
}

type silentBlocks struct{ remaining int }

func (s *silentBlocks) ReadFrames(frames []pcm.Frame) (int, error) {
	if s.remaining <= 0 {
		return 0, io.EOF
	}
	n := min(len(frames), s.remaining)
	clear(frames[:n])
	s.remaining -= n
	return n, nil
}

// RunProcessor services captured blocks until ctx is done. It sleeps
// until Capture signals a new block.
func (r *Runtime) RunProcessor(ctx context.Context) error {
	for {
		for {
			ok, err := r.ServiceAudio()
			if err != nil {
				return fmt.Errorf("audio processing: %w", err)
			}
			if !ok {
				break
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-r.wake:
		}
	}
}

// RunControl polls the control path every interval using the sample
// clock as time base, until ctx is done or a device faults.
func (r *Runtime) RunControl(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("pedal control interval must be > 0")
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := r.Poll(r.clock.Millis()); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
