// Package app wires the application together: it picks the feature source
// (live capture, WAV playback or synthetic), the display sink (SDL window,
// terminal view or headless), starts the render pipeline and owns the
// keyboard controls and the optional web monitor.
package app

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eiannone/keyboard"

	"github.com/hexvane/oxidescope/internal/analyzer"
	"github.com/hexvane/oxidescope/internal/audio"
	"github.com/hexvane/oxidescope/internal/display"
	"github.com/hexvane/oxidescope/internal/params"
	"github.com/hexvane/oxidescope/internal/pipeline"
	"github.com/hexvane/oxidescope/internal/render"
	"github.com/hexvane/oxidescope/internal/web"
)

// Config configures the application runtime.
type Config struct {
	Mode        int
	Degradation int
	Width       int
	Height      int
	TargetFPS   float64

	// Display selects the sink: "sdl", "terminal" or "none". The caller
	// resolves any auto-detection before building the app.
	Display string
	Scale   int

	DeviceName   string
	WAVPath      string
	DisableAudio bool
	BufferSize   int
	NoiseFloor   float64
	WobbleRate   float64

	WebAddr     string
	ShowStatus  bool
	ProfilePath string

	// Seed fixes every random decision (scene layout, flicker, noise,
	// dropout and the synthetic source) for reproducible runs; zero seeds
	// from the clock.
	Seed int64

	Log *log.Logger
}

// App ties together the feature source, the render pipeline, the display
// sink and the control surfaces.
type App struct {
	cfg      Config
	log      *log.Logger
	rng      *rand.Rand
	controls *params.Controls

	source      analyzer.Source
	audioSrc    audio.Source
	sourceLabel string

	sink     display.Sink
	pipe     *pipeline.Pipeline
	web      *web.Server
	profiler *pipeline.Profiler
}

// New constructs the application from the configuration. Capture failures
// fall back to the synthetic source with a warning; every other setup error
// is fatal.
func New(cfg Config) (*App, error) {
	if cfg.Width <= 0 {
		cfg.Width = 280
	}
	if cfg.Height <= 0 {
		cfg.Height = 200
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 60
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 3
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 4096
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stdout, "", log.LstdFlags)
	}

	a := &App{
		cfg:      cfg,
		log:      cfg.Log,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		controls: params.New(cfg.Mode, cfg.Degradation),
	}

	if err := a.pickSource(); err != nil {
		return nil, err
	}
	if err := a.pickSink(); err != nil {
		a.closeAudio()
		return nil, err
	}

	a.profiler = pipeline.NewProfiler(cfg.ProfilePath, a.log)

	var taps []pipeline.FrameTap
	if cfg.WebAddr != "" {
		a.web = web.NewServer(web.Config{Addr: cfg.WebAddr, App: a, Log: a.log})
		taps = append(taps, a.web.FrameTap())
	}

	pipe, err := pipeline.New(pipeline.Config{
		Mode:      cfg.Mode,
		Width:     cfg.Width,
		Height:    cfg.Height,
		TargetFPS: cfg.TargetFPS,
		Controls:  a.controls,
		Source:    a.source,
		Sink:      a.sink,
		Taps:      taps,
		Rng:       a.rng,
		Profiler:  a.profiler,
		Log:       a.log,
	})
	if err != nil {
		a.sink.Close()
		a.closeAudio()
		return nil, err
	}
	a.pipe = pipe
	return a, nil
}

// pickSource chooses the feature source. Disabling audio wins over a WAV
// path so snapshot runs stay deterministic; otherwise WAV playback beats
// live capture, and a failed capture falls back to the synthetic generator.
func (a *App) pickSource() error {
	if a.cfg.DisableAudio {
		a.useSynthetic()
		a.log.Println("audio disabled, using synthetic features")
		return nil
	}

	if a.cfg.WAVPath != "" {
		player, err := audio.NewFilePlayer(audio.FileConfig{
			Path:       a.cfg.WAVPath,
			BufferSize: a.cfg.BufferSize,
			Loop:       true,
		})
		if err != nil {
			return fmt.Errorf("wav source: %w", err)
		}
		a.audioSrc = player
		a.source = newFeed(player, a.newAnalyzer(player.SampleRate()), a.cfg.NoiseFloor)
		a.sourceLabel = "wav:" + filepath.Base(a.cfg.WAVPath)
		a.log.Printf("playing %s @ %.0f Hz", a.cfg.WAVPath, player.SampleRate())
		return nil
	}

	capture, err := audio.NewCapture(audio.Config{
		DeviceName: a.cfg.DeviceName,
		BufferSize: a.cfg.BufferSize,
		Channels:   2,
	})
	if err != nil {
		a.log.Printf("audio capture unavailable, using synthetic features: %v", err)
		a.useSynthetic()
		return nil
	}
	a.audioSrc = capture
	a.source = newFeed(capture, a.newAnalyzer(capture.SampleRate()), a.cfg.NoiseFloor)
	if info := capture.Device(); info != nil {
		a.sourceLabel = info.Name
		a.log.Printf("audio capture started on %q @ %.0f Hz", info.Name, capture.SampleRate())
	} else {
		a.log.Printf("audio capture started @ %.0f Hz", capture.SampleRate())
	}
	return nil
}

func (a *App) newAnalyzer(sampleRate float64) *analyzer.Analyzer {
	return analyzer.New(analyzer.Config{
		SampleRate: sampleRate,
		WobbleRate: a.cfg.WobbleRate,
	})
}

func (a *App) useSynthetic() {
	a.source = newFakeSource(rand.New(rand.NewSource(a.rng.Int63())))
	a.sourceLabel = "synthetic"
}

func (a *App) pickSink() error {
	switch a.cfg.Display {
	case "sdl":
		sink, err := display.NewSDL(display.SDLConfig{
			Title:  "oxidescope",
			Width:  a.cfg.Width,
			Height: a.cfg.Height,
			Scale:  a.cfg.Scale,
		})
		if err != nil {
			return fmt.Errorf("sdl display: %w", err)
		}
		a.sink = sink
	case "terminal":
		sink, err := display.NewTerminal()
		if err != nil {
			return fmt.Errorf("terminal display: %w", err)
		}
		a.sink = sink
	case "", "none":
		a.sink = display.Null{}
	default:
		return fmt.Errorf("unknown display %q", a.cfg.Display)
	}
	return nil
}

// Stats exposes the pipeline counters to status surfaces.
func (a *App) Stats() pipeline.Stats {
	return a.pipe.Stats()
}

// Controls exposes the shared control knobs.
func (a *App) Controls() *params.Controls {
	return a.controls
}

// Run starts the pipeline and blocks until the context is cancelled, the
// user quits or the sink fails. A clean quit returns nil.
func (a *App) Run(ctx context.Context) error {
	if a.web != nil {
		go func() {
			if err := a.web.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Printf("web monitor: %v", err)
			}
		}()
	}

	if err := a.pipe.Start(ctx); err != nil {
		return err
	}

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()

	// The terminal sink owns the tty and reports keys itself; everywhere
	// else the global keyboard listener provides the hotkeys.
	var events <-chan display.Event
	if src, ok := a.sink.(display.EventSource); ok {
		events = src.Events()
	} else {
		events = a.startKeys(inputCtx)
	}

	var statusCh <-chan time.Time
	if a.cfg.ShowStatus {
		if _, interactive := a.sink.(display.EventSource); !interactive {
			ticker := time.NewTicker(500 * time.Millisecond)
			defer ticker.Stop()
			statusCh = ticker.C
		}
	}

	for {
		select {
		case <-ctx.Done():
			a.pipe.Stop()
			return nil
		case <-a.pipe.Done():
			return a.pipe.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			a.handleEvent(ev)
		case <-statusCh:
			fmt.Fprintf(os.Stderr, "\r%s ", a.pipe.Stats().Status)
		}
	}
}

func (a *App) handleEvent(ev display.Event) {
	switch ev {
	case display.EventQuit:
		a.pipe.Stop()
	case display.EventNextMode:
		mode := (a.controls.Mode() + 1) % render.PaletteCount()
		if mode < 0 {
			mode = 0
		}
		a.controls.SetMode(mode)
	case display.EventDegradationUp:
		a.controls.NudgeDegradation(5)
	case display.EventDegradationDown:
		a.controls.NudgeDegradation(-5)
	case display.EventToggleBypass:
		a.controls.ToggleBypassed()
	case display.EventToggleProfile:
		if a.profiler == nil {
			a.log.Println("profiler not configured, run with -profile")
			return
		}
		if a.profiler.Toggle() {
			a.log.Println("profiler recording")
		} else {
			a.log.Println("profiler paused")
		}
	}
}

// startKeys opens the global keyboard listener and translates key presses
// into display events. Returns nil when no keyboard is available, which
// leaves the app controllable through the web API and signals only.
func (a *App) startKeys(ctx context.Context) <-chan display.Event {
	if err := keyboard.Open(); err != nil {
		a.log.Printf("keyboard input disabled: %v", err)
		return nil
	}

	events := make(chan display.Event, 16)
	closeOnce := &sync.Once{}
	closeKeyboard := func() {
		closeOnce.Do(func() { _ = keyboard.Close() })
	}
	go func() {
		<-ctx.Done()
		closeKeyboard()
	}()

	go func() {
		defer close(events)
		defer closeKeyboard()
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}

			var ev display.Event
			switch {
			case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC || char == 'q' || char == 'Q':
				ev = display.EventQuit
			case char == 'm' || char == 'M':
				ev = display.EventNextMode
			case char == '+' || char == '=' || key == keyboard.KeyArrowUp:
				ev = display.EventDegradationUp
			case char == '-' || char == '_' || key == keyboard.KeyArrowDown:
				ev = display.EventDegradationDown
			case char == 'b' || char == 'B':
				ev = display.EventToggleBypass
			case char == 'p' || char == 'P':
				ev = display.EventToggleProfile
			default:
				continue
			}

			if ev == display.EventQuit {
				events <- ev
				return
			}
			select {
			case events <- ev:
			default:
			}
		}
	}()
	return events
}

// Snapshot renders frames ticks headless and writes the final frame to path
// as a PNG. The synthetic source is stepped at the fixed tick increment, so
// a seeded run reproduces the exact same image.
func (a *App) Snapshot(path string, frames int) error {
	if frames < 1 {
		frames = 1
	}
	if fake, ok := a.source.(*fakeSource); ok {
		fake.step = render.TickStep
	}

	session := render.NewSession(a.controls.Mode(), a.cfg.Width, a.cfg.Height, a.rng)
	out := render.NewBuffer(a.cfg.Width, a.cfg.Height)
	for i := 0; i < frames; i++ {
		snap := a.controls.Sample()
		feat := a.source.Latest()
		if snap.Bypassed {
			feat = analyzer.Features{}
		}
		if snap.Mode != session.Mode() {
			session.SetMode(snap.Mode)
		}
		session.RenderFrame(out, feat, snap.Degradation)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := png.Encode(f, out.RGBA); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return f.Close()
}

// SourceLabel names the active feature source for status output.
func (a *App) SourceLabel() string {
	return a.sourceLabel
}

// Close releases every held resource. Safe after a failed or finished Run.
func (a *App) Close() error {
	a.pipe.Stop()
	if a.web != nil {
		a.web.Close()
	}
	var firstErr error
	if err := a.sink.Close(); err != nil {
		firstErr = err
	}
	if err := a.closeAudio(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.profiler.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (a *App) closeAudio() error {
	if a.audioSrc == nil {
		return nil
	}
	err := a.audioSrc.Close()
	a.audioSrc = nil
	return err
}
