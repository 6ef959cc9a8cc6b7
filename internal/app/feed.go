package app

import (
	"time"

	"github.com/hexvane/oxidescope/internal/analyzer"
	"github.com/hexvane/oxidescope/internal/audio"
)

// feed adapts a sample source into the renderer's feature source: every
// Latest pulls the newest window from the ring and runs it through the
// analyzer. The render loop is the sole caller, once per tick, so the only
// locking is inside the source's own ring.
type feed struct {
	src      audio.Source
	analyzer *analyzer.Analyzer
	floor    float64
	last     time.Time
}

func newFeed(src audio.Source, a *analyzer.Analyzer, floor float64) *feed {
	return &feed{src: src, analyzer: a, floor: floor, last: time.Now()}
}

func (f *feed) Latest() analyzer.Features {
	now := time.Now()
	delta := now.Sub(f.last).Seconds()
	f.last = now
	if delta <= 0 {
		delta = 1.0 / 60
	}
	feat := f.analyzer.Analyze(f.src.Samples(), delta)
	return analyzer.Gate(feat, f.floor)
}
