package testutil

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-stomp/stomp/pcm"
)

// RequireNear fails t if got is further than eps from want.
func RequireNear(t *testing.T, name string, got, want, eps float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > eps {
		t.Fatalf("%s = %v, want %v ± %v", name, got, want, eps)
	}
}

// RequireStereoLinked fails t on the first frame whose channels differ.
func RequireStereoLinked(t *testing.T, frames []pcm.Frame) {
	t.Helper()
	for i, f := range frames {
		if f[0] != f[1] {
			t.Fatalf("frame %d: channels diverged: %v", i, f)
		}
	}
}
