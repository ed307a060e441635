// Package program keeps the registry of named effect programs the pedal
// can run.
package program

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cwbudde/algo-stomp/dsp/core"
	"github.com/cwbudde/algo-stomp/stomp/param"
	"github.com/cwbudde/algo-stomp/stomp/stage"
	"github.com/cwbudde/algo-stomp/stomp/tuner"
)

// ErrUnknown is returned for names that are not registered.
var ErrUnknown = errors.New("unknown program")

var errDuplicate = errors.New("duplicate program")

// Program is a transform with control metadata.
type Program interface {
	stage.Transform
	Controls() []param.Control
}

// LEDSource is implemented by programs that drive the stomp LED while
// engaged.
type LEDSource interface {
	LEDLevel() (float64, bool)
}

// Context carries what a factory needs to build a program.
type Context struct {
	core.ProcessorConfig

	// Options are program specific settings, e.g. "wave" for tremolo.
	Options map[string]string

	// Tap receives the signal of the tuner program.
	Tap *tuner.Tap
}

// Option returns the option value for key, or def when unset.
func (c Context) Option(key, def string) string {
	if v, ok := c.Options[key]; ok {
		return v
	}
	return def
}

// checkOptions rejects option keys not in allowed.
func (c Context) checkOptions(allowed ...string) error {
	var unknown []string
	for k := range c.Options {
		found := false
		for _, a := range allowed {
			if k == a {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown options: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Factory builds a program instance.
type Factory func(ctx Context) (Program, error)

// Registry maps program names to their factories.
type Registry struct {
	factories map[string]Factory
	names     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("empty program name")
	}
	if factory == nil {
		return errors.New("nil factory")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", errDuplicate, name)
	}
	r.factories[name] = factory
	r.names = append(r.names, name)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic("program registry: " + err.Error())
	}
}

// Lookup returns the factory for name, or nil.
func (r *Registry) Lookup(name string) Factory {
	return r.factories[name]
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of registered programs.
func (r *Registry) Len() int { return len(r.names) }

// At returns the name at index i in registration order.
func (r *Registry) At(i int) (string, bool) {
	if i < 0 || i >= len(r.names) {
		return "", false
	}
	return r.names[i], true
}

// Next returns the name following name, wrapping around. An unknown name
// yields the first program.
func (r *Registry) Next(name string) string {
	if len(r.names) == 0 {
		return ""
	}
	for i, n := range r.names {
		if n == name {
			return r.names[(i+1)%len(r.names)]
		}
	}
	return r.names[0]
}

// New builds the program registered under name.
func (r *Registry) New(name string, ctx Context) (Program, error) {
	factory := r.factories[name]
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	p, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", name, err)
	}
	return p, nil
}
