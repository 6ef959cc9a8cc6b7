package app

import (
	"math"
	"math/rand"
	"time"

	"github.com/hexvane/oxidescope/internal/analyzer"
)

// fakeSource synthesizes plausible feature motion when no audio input is
// available: a slow breathing level, periodic beats, a free-running wobble
// LFO and occasional crackle bursts. Latest is only ever called from the
// render goroutine.
type fakeSource struct {
	rng  *rand.Rand
	last time.Time

	// step, when positive, replaces the wall clock so headless renders
	// advance deterministically.
	step float64

	phaseLevel float64
	phaseBeat  float64
	wobble     float64
	peak       float64
	crackle    float64
}

func newFakeSource(rng *rand.Rand) *fakeSource {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &fakeSource{rng: rng, last: time.Now()}
}

func (f *fakeSource) Latest() analyzer.Features {
	if f.step > 0 {
		return f.next(f.step)
	}
	now := time.Now()
	delta := now.Sub(f.last).Seconds()
	f.last = now
	if delta <= 0 || delta > 1 {
		delta = 1.0 / 60
	}
	return f.next(delta)
}

// next advances the synthetic state by delta seconds. Split out from Latest
// so tests can drive it with a fixed step.
func (f *fakeSource) next(delta float64) analyzer.Features {
	f.phaseLevel += delta * 0.7
	f.phaseBeat += delta * 2.1
	f.wobble = math.Mod(f.wobble+delta*0.35, 1.0)

	rms := 0.35 + 0.25*math.Sin(f.phaseLevel) + f.rng.Float64()*0.08

	f.peak *= math.Pow(0.2, delta)
	if math.Sin(f.phaseBeat) > 0.93 || f.rng.Float64() < delta*0.5 {
		f.peak = 0.85 + f.rng.Float64()*0.15
	}

	f.crackle *= math.Pow(0.05, delta)
	if f.rng.Float64() < delta*0.8 {
		f.crackle = 0.3 + f.rng.Float64()*0.5
	}

	return analyzer.Features{
		RMS:         clamp01(rms),
		Peak:        clamp01(math.Max(f.peak, rms*0.9)),
		WobblePhase: f.wobble,
		Crackle:     clamp01(f.crackle),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
