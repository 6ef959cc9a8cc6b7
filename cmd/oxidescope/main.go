package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/hexvane/oxidescope/internal/app"
	"github.com/hexvane/oxidescope/internal/audio"
	"github.com/hexvane/oxidescope/internal/display"
)

func main() {
	var (
		mode        = flag.Int("mode", 0, "Scene variant / palette index")
		degradation = flag.Int("degradation", 35, "Initial degradation amount (0-100)")
		width       = flag.Int("width", 280, "Output width in pixels (multiple of 4)")
		height      = flag.Int("height", 200, "Output height in pixels (multiple of 4)")
		targetFPS   = flag.Float64("fps", 60, "Target frames per second")
		displayKind = flag.String("display", "auto", "Display sink (auto|sdl|terminal|none)")
		scale       = flag.Int("scale", 3, "SDL window scale factor")
		deviceName  = flag.String("audio-device", "", "Optional PortAudio device name (substring match)")
		bufferSize  = flag.Int("buffer-size", 4096, "Audio ring size in samples (power of two recommended)")
		wavPath     = flag.String("wav", "", "Play a WAV file on loop instead of capturing")
		noAudio     = flag.Bool("no-audio", false, "Run with synthetic audio features")
		noiseFloor  = flag.Float64("noise-floor", 0.02, "Feature gate; levels below it render a still frame")
		wobbleRate  = flag.Float64("wobble-rate", 0.35, "Tape wobble LFO rate in Hz")
		webAddr     = flag.String("web", "", "Serve the web monitor on this address (e.g. :8080)")
		showStatus  = flag.Bool("status", true, "Print the status line on headless runs")
		profilePath = flag.String("profile", "", "Write per-frame section timings to this CSV file")
		snapshot    = flag.String("snapshot", "", "Render headless and write the final frame to this PNG, then exit")
		frames      = flag.Int("frames", 60, "Frames to advance before taking the snapshot")
		seed        = flag.Int64("seed", 0, "Random seed; 0 seeds from the clock")
		listDevs    = flag.Bool("list-audio-devices", false, "List available audio input devices and exit")
		debug       = flag.Bool("debug", false, "Enable verbose logging")
	)

	flag.Parse()

	if *width <= 0 || *height <= 0 {
		log.Fatalf("invalid dimensions: width=%d height=%d", *width, *height)
	}
	if *targetFPS <= 0 {
		log.Fatalf("fps must be positive (got %.2f)", *targetFPS)
	}
	if *bufferSize <= 0 {
		log.Fatalf("buffer-size must be positive (got %d)", *bufferSize)
	}

	logger := log.New(os.Stderr, "[oxidescope] ", log.LstdFlags)
	if !*debug {
		logger.SetFlags(0)
	}

	needAudio := (!*noAudio && *wavPath == "" && *snapshot == "") || *listDevs
	if needAudio {
		if err := audio.Initialize(); err != nil {
			logger.Fatalf("failed to initialize PortAudio: %v", err)
		}
		defer audio.Terminate()
	}

	if *listDevs {
		devices, err := audio.ListDevices()
		if err != nil {
			logger.Fatalf("list devices: %v", err)
		}
		if len(devices) == 0 {
			fmt.Println("no capture-capable audio devices")
			return
		}
		fmt.Println("capture devices, picker order:")
		for i, dev := range devices {
			mark := ' '
			if dev.DefaultInput {
				mark = '*'
			}
			fmt.Printf("%c %2d. %s  [%s]  %dch %.0fHz  score %d\n",
				mark, i+1, dev.Name, dev.HostAPI, dev.Inputs, dev.SampleRate, dev.Score)
		}
		fmt.Printf("\nwithout -audio-device the picker opens %q; * is the system default input\n", devices[0].Name)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sink := *displayKind
	if sink == "auto" {
		sink = pickDisplay(*snapshot != "")
	}

	appConfig := app.Config{
		Mode:         *mode,
		Degradation:  *degradation,
		Width:        *width,
		Height:       *height,
		TargetFPS:    *targetFPS,
		Display:      sink,
		Scale:        *scale,
		DeviceName:   *deviceName,
		WAVPath:      *wavPath,
		DisableAudio: *noAudio || *snapshot != "",
		BufferSize:   *bufferSize,
		NoiseFloor:   *noiseFloor,
		WobbleRate:   *wobbleRate,
		WebAddr:      *webAddr,
		ShowStatus:   *showStatus,
		ProfilePath:  *profilePath,
		Seed:         *seed,
		Log:          logger,
	}

	a, err := app.New(appConfig)
	if err != nil {
		logger.Fatalf("failed to create app: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup error: %v\n", err)
		}
	}()

	if *snapshot != "" {
		if err := a.Snapshot(*snapshot, *frames); err != nil {
			logger.Fatalf("snapshot failed: %v", err)
		}
		logger.Printf("wrote %s", *snapshot)
		return
	}

	if err := a.Run(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nExiting...")
			return
		}
		logger.Fatalf("runtime error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
}

// pickDisplay resolves the auto sink: headless for snapshots, the SDL window
// when the binary carries it, the terminal view on a tty, otherwise nothing.
func pickDisplay(snapshot bool) string {
	switch {
	case snapshot:
		return "none"
	case display.SupportsSDL():
		return "sdl"
	case term.IsTerminal(int(os.Stdout.Fd())):
		return "terminal"
	default:
		return "none"
	}
}
