// Package panel is a terminal front panel for the simulated pedal: it
// shows the runtime state and turns key presses into footswitch and
// potentiometer movements.
//
// Keys: space presses or releases the footswitch, 1-4 select a control,
// up/down move it by 5 %, left/right by 1 %, p requests the next program,
// q quits.
package panel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"code.rocketnine.space/tslocum/cview"
	"github.com/gdamore/tcell/v2"

	"github.com/cwbudde/algo-stomp/dsp/core"
	"github.com/cwbudde/algo-stomp/internal/hal"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pedal"
	"github.com/cwbudde/algo-stomp/stomp/stage"
)

const (
	refreshInterval = 50 * time.Millisecond
	meterWidth      = 30
	coarseStep      = 0.05
	fineStep        = 0.01
)

// Panel drives a SimSwitch and SimADC from the keyboard.
type Panel struct {
	rt     *pedal.Runtime
	sw     *hal.SimSwitch
	adc    *hal.SimADC
	adcMax int

	mu       sync.Mutex
	selected param.Channel
	quit     bool

	app    *cview.Application
	status *cview.TextView
}

// New builds a panel for rt. adcMax is the full-scale raw reading.
func New(rt *pedal.Runtime, sw *hal.SimSwitch, adc *hal.SimADC, adcMax int) *Panel {
	return &Panel{rt: rt, sw: sw, adc: adc, adcMax: adcMax}
}

// Run shows the panel until ctx is done or the user quits. cancel is
// called on quit so the rest of the host shuts down too.
func (p *Panel) Run(ctx context.Context, cancel context.CancelFunc) error {
	p.app = cview.NewApplication()
	defer p.app.HandlePanic()

	p.status = cview.NewTextView()
	p.status.SetDynamicColors(true)
	p.status.SetPadding(0, 0, 1, 1)
	p.status.SetBorder(true)
	p.status.SetTitle(" algo-stomp ")

	p.app.SetRoot(p.status, true)
	p.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if p.handleKey(ev) {
			cancel()
			return nil
		}
		return ev
	})

	go func() {
		t := time.NewTicker(refreshInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				p.app.Stop()
				return
			case <-t.C:
				text := p.render(p.rt.Snapshot())
				p.app.QueueUpdateDraw(func() {
					p.status.SetText(text)
				})
			}
		}
	}()

	if err := p.app.Run(); err != nil {
		return fmt.Errorf("panel: %w", err)
	}
	return nil
}

// handleKey applies one key event and reports whether the user quit.
func (p *Panel) handleKey(ev *tcell.EventKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyEsc:
		p.quit = true
	case tcell.KeyUp:
		p.nudge(coarseStep)
	case tcell.KeyDown:
		p.nudge(-coarseStep)
	case tcell.KeyRight:
		p.nudge(fineStep)
	case tcell.KeyLeft:
		p.nudge(-fineStep)
	case tcell.KeyRune:
		switch r := ev.Rune(); {
		case r == ' ':
			p.sw.Toggle()
		case r >= '1' && r <= '0'+param.NumChannels:
			p.selected = param.Channel(r - '1')
		case r == 'p':
			p.rt.RequestProgram(p.rt.Registry().Next(p.rt.Program()))
		case r == 'q':
			p.quit = true
		}
	}
	return p.quit
}

func (p *Panel) nudge(delta float64) {
	ch := int(p.selected)
	step := int(delta * float64(p.adcMax))
	p.adc.Set(ch, max(0, min(p.adcMax, p.adc.Get(ch)+step)))
}

func (p *Panel) render(s pedal.Snapshot) string {
	p.mu.Lock()
	selected := p.selected
	p.mu.Unlock()

	var b strings.Builder
	state := "[gray]BYPASSED[-]"
	if s.State == stage.Engaged {
		state = "[green]ENGAGED[-]"
	}
	fmt.Fprintf(&b, "Program  [yellow]%s[-]  %s\n", s.Program, state)
	fmt.Fprintf(&b, "Switch   %s   LED %s\n", s.Switch, meter(float64(s.LEDDuty)/65535, 10))
	fmt.Fprintf(&b, "Time     %.3f s   DSP %4.1f %%\n\n", float64(s.TimeMs)/1000, s.DSPLoad*100)

	controls := controlNames(p.rt.Controls())
	for ch := range param.NumChannels {
		marker := "  "
		if param.Channel(ch) == selected {
			marker = "[white]>[-] "
		}
		remote := ""
		if s.Overridden[ch] {
			remote = " [blue]midi[-]"
		}
		fmt.Fprintf(&b, "%s%d %-10s %s %5.3f  %s%s\n", marker, ch+1, param.Channel(ch), meter(s.Params.Values[ch], meterWidth), s.Params.Values[ch], controls[ch], remote)
	}

	if s.Tuner.Active {
		fmt.Fprintf(&b, "\nTuner    [yellow]%-4s[-] %+5.1f cents  %.1f Hz  %.0f dBFS\n",
			s.Tuner.Name(), s.Tuner.Cents, s.Tuner.Frequency, core.LinearToDB(s.Tuner.RMS))
	}

	fmt.Fprintf(&b, "\nBlocks %d  Overruns %d  Toggles %d  Long presses %d\n",
		s.Transport.Processed, s.Transport.Overruns, s.Toggles, s.LongPresses)
	if s.Fault != nil {
		fmt.Fprintf(&b, "[red]FAULT %s[-]\n", cview.Escape(s.Fault.Error()))
	}
	b.WriteString("\n[gray]space switch  1-4 select  arrows adjust  p program  q quit[-]")
	return b.String()
}

// controlNames labels each channel with the controls it drives.
func controlNames(controls []param.Control) [param.NumChannels]string {
	var out [param.NumChannels]string
	for _, c := range controls {
		if c.Channel < 0 || int(c.Channel) >= param.NumChannels {
			continue
		}
		if out[c.Channel] != "" {
			out[c.Channel] += ", "
		}
		out[c.Channel] += c.Name
	}
	return out
}

func meter(v float64, width int) string {
	n := int(v*float64(width) + 0.5)
	n = max(0, min(width, n))
	return "[green]" + strings.Repeat("|", n) + "[gray]" + strings.Repeat(".", width-n) + "[-]"
}
