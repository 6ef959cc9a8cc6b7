package app

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hexvane/oxidescope/internal/display"
	"github.com/hexvane/oxidescope/internal/render"
)

func testConfig() Config {
	return Config{
		DisableAudio: true,
		Display:      "none",
		Seed:         1,
		Log:          log.New(io.Discard, "", 0),
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

func TestNewUsesSyntheticSourceWhenAudioDisabled(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if got := a.SourceLabel(); got != "synthetic" {
		t.Fatalf("source label = %q, want synthetic", got)
	}
	if _, ok := a.source.(*fakeSource); !ok {
		t.Fatalf("source = %T, want *fakeSource", a.source)
	}
	if a.audioSrc != nil {
		t.Fatal("synthetic run opened an audio source")
	}
}

func TestNewRejectsUnknownDisplay(t *testing.T) {
	cfg := testConfig()
	cfg.Display = "hologram"
	if _, err := New(cfg); err == nil {
		t.Fatal("New accepted an unknown display kind")
	}
}

func TestSnapshotWritesPNG(t *testing.T) {
	cfg := testConfig()
	cfg.Seed = 3
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := a.Snapshot(path, 10); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if img.Bounds().Dx() != 280 || img.Bounds().Dy() != 200 {
		t.Fatalf("snapshot is %dx%d, want 280x200", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestSnapshotDeterministicForSeed(t *testing.T) {
	shoot := func(path string) []byte {
		cfg := testConfig()
		cfg.Seed = 42
		a, err := New(cfg)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer a.Close()

		if err := a.Snapshot(path, 30); err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		return data
	}

	dir := t.TempDir()
	first := shoot(filepath.Join(dir, "a.png"))
	second := shoot(filepath.Join(dir, "b.png"))
	if !bytes.Equal(first, second) {
		t.Fatal("same seed produced different snapshots")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	waitFor(t, "first frame", func() bool { return a.Stats().Frames >= 1 })
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run = %v, want nil after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHandleEventDrivesControls(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	a.handleEvent(display.EventNextMode)
	if got := a.controls.Mode(); got != 1 {
		t.Errorf("mode after next-mode = %d, want 1", got)
	}

	a.handleEvent(display.EventDegradationUp)
	if got := a.controls.Degradation(); got != 5 {
		t.Errorf("degradation after nudge = %d, want 5", got)
	}

	a.handleEvent(display.EventToggleBypass)
	if !a.controls.Bypassed() {
		t.Error("bypass not toggled on")
	}

	for i := 0; i < render.PaletteCount(); i++ {
		a.handleEvent(display.EventNextMode)
	}
	if got := a.controls.Mode(); got != 1 {
		t.Errorf("mode after a full cycle = %d, want wrap back to 1", got)
	}
}
