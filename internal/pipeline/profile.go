package pipeline

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Profiler appends per-tick section timings to a CSV file. All methods are
// safe on a nil receiver so the loop can call them unconditionally.
type Profiler struct {
	mu      sync.Mutex
	file    *os.File
	start   time.Time
	last    time.Time
	enabled bool
}

// NewProfiler opens the CSV sink at path. An empty path or an open failure
// yields a nil profiler; the failure is logged, not fatal.
func NewProfiler(path string, logger *log.Logger) *Profiler {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if logger != nil {
			logger.Printf("profiler disabled: %v", err)
		}
		return nil
	}
	p := &Profiler{
		file:    f,
		enabled: true,
	}
	fmt.Fprintln(f, "timestamp,section,delta_ms")
	return p
}

// BeginFrame marks the start of a tick.
func (p *Profiler) BeginFrame() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	now := time.Now()
	p.start = now
	p.last = now
	p.write("frame_start", 0)
}

// MarkSection records the time spent since the previous mark.
func (p *Profiler) MarkSection(name string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	now := time.Now()
	delta := now.Sub(p.last).Seconds() * 1000
	p.last = now
	p.write(name, delta)
}

// EndFrame records the total tick duration.
func (p *Profiler) EndFrame() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.write("frame_total", time.Since(p.start).Seconds()*1000)
}

// Toggle flips recording on or off and reports the new state.
func (p *Profiler) Toggle() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return false
	}
	p.enabled = !p.enabled
	return p.enabled
}

// Close flushes and closes the CSV file.
func (p *Profiler) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	p.enabled = false
	return err
}

// write assumes mu is held.
func (p *Profiler) write(section string, deltaMs float64) {
	if p.file == nil {
		return
	}
	timestamp := time.Now().Format(time.RFC3339Nano)
	fmt.Fprintf(p.file, "%s,%s,%.3f\n", timestamp, section, deltaMs)
}
