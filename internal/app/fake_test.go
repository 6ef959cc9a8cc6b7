package app

import (
	"math/rand"
	"testing"

	"github.com/hexvane/oxidescope/internal/render"
)

func TestFakeSourceStaysInRange(t *testing.T) {
	f := newFakeSource(rand.New(rand.NewSource(7)))

	sawBeat := false
	for i := 0; i < 600; i++ {
		feat := f.next(1.0 / 60)
		if feat.RMS < 0 || feat.RMS > 1 {
			t.Fatalf("tick %d: rms %v out of [0,1]", i, feat.RMS)
		}
		if feat.Peak < 0 || feat.Peak > 1 {
			t.Fatalf("tick %d: peak %v out of [0,1]", i, feat.Peak)
		}
		if feat.Crackle < 0 || feat.Crackle > 1 {
			t.Fatalf("tick %d: crackle %v out of [0,1]", i, feat.Crackle)
		}
		if feat.WobblePhase < 0 || feat.WobblePhase >= 1 {
			t.Fatalf("tick %d: wobble phase %v out of [0,1)", i, feat.WobblePhase)
		}
		if feat.Peak > 0.8 {
			sawBeat = true
		}
	}
	if !sawBeat {
		t.Error("no beat fired across ten seconds of synthetic motion")
	}
}

func TestFakeSourceFixedStepIsDeterministic(t *testing.T) {
	a := newFakeSource(rand.New(rand.NewSource(11)))
	b := newFakeSource(rand.New(rand.NewSource(11)))
	a.step = render.TickStep
	b.step = render.TickStep

	for i := 0; i < 120; i++ {
		got, want := a.Latest(), b.Latest()
		if got != want {
			t.Fatalf("tick %d: %+v != %+v", i, got, want)
		}
	}
}
