package param

import "github.com/cwbudde/algo-stomp/dsp/core"

// Control describes how one parameter channel drives an effect setting.
type Control struct {
	Name    string
	Channel Channel
	Min     float64
	Max     float64
	Unit    string
	// Exp selects an exponential curve. Min and Max must then be > 0.
	Exp bool
}

// Map converts a normalized value to the control's range.
func (c Control) Map(v float64) float64 {
	v = core.Unit(v)
	if c.Exp && c.Min > 0 && c.Max > 0 {
		return core.MapExp(v, c.Min, c.Max)
	}
	return core.MapRange(v, c.Min, c.Max)
}

// Value maps the control's channel of p.
func (c Control) Value(p Vector) float64 {
	return c.Map(p.Get(c.Channel))
}
