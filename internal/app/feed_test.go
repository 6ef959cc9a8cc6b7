package app

import (
	"math"
	"testing"

	"github.com/hexvane/oxidescope/internal/analyzer"
)

// sineSource feeds the same half-amplitude 440Hz window on every pull.
type sineSource struct {
	window []float32
}

func newSineSource(n int) *sineSource {
	w := make([]float32, n)
	for i := range w {
		w[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/44100))
	}
	return &sineSource{window: w}
}

func (s *sineSource) Samples() []float32  { return s.window }
func (s *sineSource) SampleRate() float64 { return 44100 }
func (s *sineSource) Close() error        { return nil }

func TestFeedComputesFeaturesFromSamples(t *testing.T) {
	f := newFeed(newSineSource(1024), analyzer.New(analyzer.Config{SampleRate: 44100}), 0)

	var feat analyzer.Features
	for i := 0; i < 25; i++ {
		feat = f.Latest()
	}

	// Half-amplitude sine: the smoothed rms converges toward 0.354 and the
	// peak hold tracks the 0.5 sample ceiling.
	if feat.RMS < 0.3 || feat.RMS > 0.4 {
		t.Errorf("rms = %v, want ~0.35", feat.RMS)
	}
	if feat.Peak < 0.4 || feat.Peak > 0.55 {
		t.Errorf("peak = %v, want ~0.5", feat.Peak)
	}
	if feat.Crackle > 0.15 {
		t.Errorf("crackle = %v for a clean tone, want near zero", feat.Crackle)
	}
	if feat.WobblePhase < 0 || feat.WobblePhase >= 1 {
		t.Errorf("wobble phase = %v, want [0,1)", feat.WobblePhase)
	}
}

func TestFeedAppliesNoiseFloor(t *testing.T) {
	f := newFeed(newSineSource(1024), analyzer.New(analyzer.Config{SampleRate: 44100}), 0.9)

	var feat analyzer.Features
	for i := 0; i < 25; i++ {
		feat = f.Latest()
	}
	if feat.RMS != 0 || feat.Peak != 0 {
		t.Errorf("features above a 0.9 floor: rms=%v peak=%v, want gated to 0", feat.RMS, feat.Peak)
	}
}
