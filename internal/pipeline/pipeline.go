// Package pipeline runs the frame scheduler: a fixed-rate loop that samples
// the control parameters and the latest audio features once per tick,
// renders a frame and hands it to the display sink. The loop is a forward-
// only state machine, Idle to Running to Stopped, and Stopped is terminal;
// a Pipeline runs at most once.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hexvane/oxidescope/internal/analyzer"
	"github.com/hexvane/oxidescope/internal/display"
	"github.com/hexvane/oxidescope/internal/params"
	"github.com/hexvane/oxidescope/internal/render"
)

// State is the pipeline life cycle phase.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// ErrNotIdle is returned by Start when the pipeline is already running or
// was stopped.
var ErrNotIdle = errors.New("pipeline: not idle")

// FrameTap observes each finished frame. Taps run on the render goroutine
// after the sink and must copy anything they keep; the buffer is rewritten
// on the next tick.
type FrameTap func(img *image.RGBA)

// Stats is a point-in-time view of the loop for status surfaces.
type Stats struct {
	State    string
	Mode     int
	Palette  string
	Frames   uint64
	Skipped  uint64
	FPS      float64
	Status   string
	Uptime   time.Duration
	Features analyzer.Features
}

// Config assembles a Pipeline. Controls, Source, Sink and Rng are optional:
// missing controls pin mode and degradation to their zero values, a missing
// source is silence, a missing sink discards frames and a missing random
// source is seeded from the clock.
type Config struct {
	Mode      int
	Width     int
	Height    int
	TargetFPS float64
	Controls  *params.Controls
	Source    analyzer.Source
	Sink      display.Sink
	Taps      []FrameTap
	Rng       *rand.Rand
	Profiler  *Profiler
	Log       *log.Logger
}

// Pipeline owns the render goroutine, the session and the output buffer.
// The sink is borrowed; closing it stays with the caller.
type Pipeline struct {
	session  *render.Session
	out      *render.Buffer
	controls *params.Controls
	source   analyzer.Source
	sink     display.Sink
	taps     []FrameTap
	profiler *Profiler
	log      *log.Logger

	interval time.Duration

	state    atomic.Int32
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once

	mu       sync.Mutex
	frames   uint64
	skipped  uint64
	fps      float64
	status   string
	mode     int
	palette  string
	feat     analyzer.Features
	lastTick time.Time
	started  time.Time
	err      error
}

// New validates the configuration and builds an idle Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("pipeline: output %dx%d is not positive", cfg.Width, cfg.Height)
	}
	if cfg.Width%render.PixelSize != 0 || cfg.Height%render.PixelSize != 0 {
		return nil, fmt.Errorf("pipeline: output %dx%d is not a multiple of %d", cfg.Width, cfg.Height, render.PixelSize)
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 60
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stdout, "", log.LstdFlags)
	}
	if cfg.Rng == nil {
		cfg.Rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Controls == nil {
		cfg.Controls = params.New(cfg.Mode, 0)
	}
	if cfg.Source == nil {
		cfg.Source = analyzer.Silence{}
	}
	if cfg.Sink == nil {
		cfg.Sink = display.Null{}
	}

	session := render.NewSession(cfg.Mode, cfg.Width, cfg.Height, cfg.Rng)
	p := &Pipeline{
		session:  session,
		out:      render.NewBuffer(cfg.Width, cfg.Height),
		controls: cfg.Controls,
		source:   cfg.Source,
		sink:     cfg.Sink,
		taps:     cfg.Taps,
		profiler: cfg.Profiler,
		log:      cfg.Log,
		interval: time.Duration(float64(time.Second) / cfg.TargetFPS),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	p.mode = session.Mode()
	p.palette = session.PaletteName()
	return p, nil
}

// Start launches the render loop. It fails with ErrNotIdle unless the
// pipeline is still idle. The loop exits on Stop, context cancellation or
// the sink reporting it was closed.
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrNotIdle
	}
	p.mu.Lock()
	p.started = time.Now()
	p.mu.Unlock()
	go p.loop(ctx)
	return nil
}

// Stop halts the loop and waits for any in-flight tick to complete. It is
// idempotent and safe to call from any goroutine, including before Start.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	if p.state.CompareAndSwap(int32(StateIdle), int32(StateStopped)) {
		p.doneOnce.Do(func() { close(p.done) })
		return
	}
	<-p.done
}

// Done is closed once the loop has exited for any reason.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// State returns the current life cycle phase.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Err returns the error that terminated the loop, if any. A user quit or a
// plain Stop is not an error.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stats snapshots the loop counters for status surfaces.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	var uptime time.Duration
	if !p.started.IsZero() {
		uptime = time.Since(p.started)
	}
	return Stats{
		State:    p.State().String(),
		Mode:     p.mode,
		Palette:  p.palette,
		Frames:   p.frames,
		Skipped:  p.skipped,
		FPS:      p.fps,
		Status:   p.status,
		Uptime:   uptime,
		Features: p.feat,
	}
}

func (p *Pipeline) loop(ctx context.Context) {
	defer func() {
		p.state.Store(int32(StateStopped))
		p.doneOnce.Do(func() { close(p.done) })
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			if err := p.tick(); err != nil {
				if errors.Is(err, display.ErrClosed) {
					p.log.Println("display closed, stopping")
					return
				}
				p.log.Printf("present failed, stopping: %v", err)
				p.mu.Lock()
				p.err = err
				p.mu.Unlock()
				return
			}
		}
	}
}

// tick renders and presents one frame. A panic anywhere inside is
// recovered and the frame skipped; the loop keeps running.
func (p *Pipeline) tick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.mu.Lock()
			p.skipped++
			p.mu.Unlock()
			p.log.Printf("tick panic recovered, frame skipped: %v", r)
			err = nil
		}
	}()

	snap := p.controls.Sample()
	feat := p.source.Latest()
	if snap.Bypassed {
		feat = analyzer.Features{}
	}
	if snap.Mode != p.session.Mode() {
		p.session.SetMode(snap.Mode)
		p.log.Printf("mode -> %d (%s)", snap.Mode, p.session.PaletteName())
	}

	p.profiler.BeginFrame()
	p.session.RenderFrame(p.out, feat, snap.Degradation)
	p.profiler.MarkSection("render")

	now := time.Now()
	p.mu.Lock()
	if !p.lastTick.IsZero() {
		if dt := now.Sub(p.lastTick).Seconds(); dt > 0 {
			sample := 1 / dt
			if p.fps == 0 {
				p.fps = sample
			} else {
				p.fps = p.fps*0.9 + sample*0.1
			}
		}
	}
	p.lastTick = now
	p.frames++
	p.mode = p.session.Mode()
	p.palette = p.session.PaletteName()
	p.feat = feat
	p.status = p.session.Status(feat, snap.Degradation, p.fps)
	status := p.status
	p.mu.Unlock()

	if err := p.sink.Present(p.out.RGBA, status); err != nil {
		return err
	}
	p.profiler.MarkSection("present")

	for _, tap := range p.taps {
		tap(p.out.RGBA)
	}
	p.profiler.EndFrame()
	return nil
}
