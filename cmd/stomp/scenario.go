package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-stomp/internal/hal"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/pedal"
)

// scenario is a timeline of control actions applied during a render.
type scenario struct {
	// Controls sets control positions before the first frame.
	Controls map[string]float64 `yaml:"controls"`
	Events   []scenarioEvent    `yaml:"events"`
}

type scenarioEvent struct {
	AtMs uint64 `yaml:"at_ms"`
	// Switch is "press" or "release".
	Switch   string             `yaml:"switch,omitempty"`
	Controls map[string]float64 `yaml:"controls,omitempty"`
	Program  string             `yaml:"program,omitempty"`
}

func loadScenario(path string) (*scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	defer f.Close()
	return decodeScenario(f)
}

func decodeScenario(r io.Reader) (*scenario, error) {
	var s scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("scenario: decode yaml: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].AtMs < s.Events[j].AtMs })
	return &s, nil
}

func (s *scenario) validate() error {
	var errs []error
	checkControls := func(where string, m map[string]float64) {
		for name, v := range m {
			if _, err := param.ParseChannel(name); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", where, err))
			}
			if v < 0 || v > 1 || math.IsNaN(v) {
				errs = append(errs, fmt.Errorf("%s: control %s must be in [0, 1]: %g", where, name, v))
			}
		}
	}
	checkControls("controls", s.Controls)
	for i, e := range s.Events {
		where := fmt.Sprintf("events[%d]", i)
		if e.Switch != "" && e.Switch != "press" && e.Switch != "release" {
			errs = append(errs, fmt.Errorf("%s: switch must be press or release: %q", where, e.Switch))
		}
		checkControls(where, e.Controls)
		if e.Switch == "" && len(e.Controls) == 0 && e.Program == "" {
			errs = append(errs, fmt.Errorf("%s: empty event", where))
		}
	}
	return errors.Join(errs...)
}

// player applies a scenario to simulated hardware as time advances.
type player struct {
	s      *scenario
	next   int
	rt     *pedal.Runtime
	sw     *hal.SimSwitch
	adc    *hal.SimADC
	adcMax int
}

func newPlayer(s *scenario, rt *pedal.Runtime, sw *hal.SimSwitch, adc *hal.SimADC, adcMax int) *player {
	p := &player{s: s, rt: rt, sw: sw, adc: adc, adcMax: adcMax}
	p.setControls(s.Controls)
	return p
}

// tick applies every event due at nowMs.
func (p *player) tick(nowMs uint64) {
	for p.next < len(p.s.Events) && p.s.Events[p.next].AtMs <= nowMs {
		e := p.s.Events[p.next]
		p.next++
		switch e.Switch {
		case "press":
			p.sw.Press()
		case "release":
			p.sw.Release()
		}
		p.setControls(e.Controls)
		if e.Program != "" {
			p.rt.RequestProgram(e.Program)
		}
	}
}

// done reports whether every event was applied.
func (p *player) done() bool { return p.next == len(p.s.Events) }

func (p *player) setControls(m map[string]float64) {
	for name, v := range m {
		ch, err := param.ParseChannel(name)
		if err != nil {
			continue
		}
		p.adc.Set(int(ch), int(math.Round(v*float64(p.adcMax))))
	}
}
