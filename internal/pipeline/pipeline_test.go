package pipeline

import (
	"context"
	"errors"
	"image"
	"io"
	"log"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hexvane/oxidescope/internal/analyzer"
	"github.com/hexvane/oxidescope/internal/display"
	"github.com/hexvane/oxidescope/internal/params"
	"github.com/hexvane/oxidescope/internal/render"
)

// countSink counts presents and can start failing after a threshold.
type countSink struct {
	presents  atomic.Int64
	failAfter int64
	err       error
}

func (s *countSink) Present(img *image.RGBA, status string) error {
	n := s.presents.Add(1)
	if s.failAfter > 0 && n > s.failAfter {
		return s.err
	}
	return nil
}

func (s *countSink) Close() error { return nil }

// panicSource panics on one specific Latest call; it is only touched from
// the render goroutine.
type panicSource struct {
	calls   int
	panicOn int
}

func (s *panicSource) Latest() analyzer.Features {
	s.calls++
	if s.calls == s.panicOn {
		panic("synthetic feature failure")
	}
	return analyzer.Features{}
}

func testConfig() Config {
	return Config{
		Mode:      0,
		Width:     40,
		Height:    40,
		TargetFPS: 250,
		Rng:       rand.New(rand.NewSource(1)),
		Log:       log.New(io.Discard, "", 0),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewRejectsBadDimensions(t *testing.T) {
	cases := map[string]struct {
		w, h int
	}{
		"zero":            {0, 0},
		"negative":        {-40, 40},
		"width off grid":  {42, 40},
		"height off grid": {40, 38},
	}
	for name, tc := range cases {
		cfg := testConfig()
		cfg.Width = tc.w
		cfg.Height = tc.h
		if _, err := New(cfg); err == nil {
			t.Errorf("%s: New(%dx%d) succeeded, want error", name, tc.w, tc.h)
		}
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:    "idle",
		StateRunning: "running",
		StateStopped: "stopped",
		State(99):    "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestPipelineTicksAndStops(t *testing.T) {
	cfg := testConfig()
	sink := &countSink{}
	cfg.Sink = sink

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.State(); got != StateIdle {
		t.Fatalf("initial state = %v, want idle", got)
	}

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := p.State(); got != StateRunning {
		t.Fatalf("state after Start = %v, want running", got)
	}

	waitFor(t, "three frames", func() bool { return p.Stats().Frames >= 3 })

	p.Stop()
	if got := p.State(); got != StateStopped {
		t.Fatalf("state after Stop = %v, want stopped", got)
	}

	frozen := p.Stats().Frames
	time.Sleep(30 * time.Millisecond)
	if got := p.Stats().Frames; got != frozen {
		t.Fatalf("frames advanced after Stop: %d -> %d", frozen, got)
	}
	if sink.presents.Load() == 0 {
		t.Fatal("sink never saw a frame")
	}
	if err := p.Err(); err != nil {
		t.Fatalf("Err after clean stop = %v, want nil", err)
	}
}

func TestStartTwiceFails(t *testing.T) {
	p, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Stop()

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("second Start = %v, want ErrNotIdle", err)
	}
}

func TestStopBeforeStart(t *testing.T) {
	p, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p.Stop()
	if got := p.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
	select {
	case <-p.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("Start after Stop = %v, want ErrNotIdle", err)
	}
}

func TestStopIdempotent(t *testing.T) {
	p, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	p.Stop()
	p.Stop()
	p.Stop()

	if got := p.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
}

func TestContextCancelStopsLoop(t *testing.T) {
	p, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit on context cancellation")
	}
	if got := p.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
}

func TestPanicSkipsTickAndContinues(t *testing.T) {
	cfg := testConfig()
	cfg.Source = &panicSource{panicOn: 3}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	waitFor(t, "frames after the panicked tick", func() bool {
		st := p.Stats()
		return st.Frames >= 5 && st.Skipped >= 1
	})

	if got := p.Stats().Skipped; got != 1 {
		t.Fatalf("skipped = %d, want 1", got)
	}
}

func TestSinkQuitStopsLoopCleanly(t *testing.T) {
	cfg := testConfig()
	sink := &countSink{failAfter: 2, err: display.ErrClosed}
	cfg.Sink = sink

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after the sink quit")
	}
	if got := p.State(); got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
	if err := p.Err(); err != nil {
		t.Fatalf("Err after user quit = %v, want nil", err)
	}
}

func TestSinkFailureRecorded(t *testing.T) {
	broken := errors.New("texture upload failed")
	cfg := testConfig()
	cfg.Sink = &countSink{failAfter: 1, err: broken}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after the sink failed")
	}
	if got := p.Err(); !errors.Is(got, broken) {
		t.Fatalf("Err = %v, want %v", got, broken)
	}
}

func TestModeChangeTakesEffect(t *testing.T) {
	cfg := testConfig()
	controls := params.New(0, 0)
	cfg.Controls = controls

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	waitFor(t, "first frame", func() bool { return p.Stats().Frames >= 1 })

	controls.SetMode(2)
	waitFor(t, "mode switch", func() bool { return p.Stats().Mode == 2 })

	want := render.PaletteNames()[2]
	if got := p.Stats().Palette; got != want {
		t.Fatalf("palette after mode switch = %q, want %q", got, want)
	}
}

func TestTapsObserveFrames(t *testing.T) {
	cfg := testConfig()
	var taps atomic.Int64
	var badSize atomic.Bool
	cfg.Taps = []FrameTap{func(img *image.RGBA) {
		taps.Add(1)
		if img.Bounds().Dx() != cfg.Width || img.Bounds().Dy() != cfg.Height {
			badSize.Store(true)
		}
	}}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	waitFor(t, "tap invocations", func() bool { return taps.Load() >= 2 })
	if badSize.Load() {
		t.Fatal("tap saw a frame with the wrong dimensions")
	}
}
