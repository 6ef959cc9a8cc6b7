package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
)

// FileConfig controls WAV playback.
type FileConfig struct {
	Path string
	// BufferSize is the ring size in mono samples.
	BufferSize int
	// Loop restarts the file when it runs out.
	Loop bool
}

// FilePlayer plays a WAV file through the speaker while teeing the decoded
// samples into a ring buffer, so the analyzer sees exactly what is audible.
type FilePlayer struct {
	stream beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	ring   *ring
	path   string

	closeOnce sync.Once
	closeErr  error
}

// NewFilePlayer decodes path, initializes the speaker at the file's sample
// rate and starts playback.
func NewFilePlayer(cfg FileConfig) (*FilePlayer, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	stream, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode wav %s: %w", cfg.Path, err)
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(100*time.Millisecond)); err != nil {
		stream.Close()
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	p := &FilePlayer{
		stream: stream,
		format: format,
		ring:   newRing(cfg.BufferSize),
		path:   cfg.Path,
	}
	p.ctrl = &beep.Ctrl{Streamer: &teeStreamer{src: stream, ring: p.ring, loop: cfg.Loop}}
	speaker.Play(p.ctrl)
	return p, nil
}

// Samples returns the latest window of played-back mono samples, oldest
// first.
func (p *FilePlayer) Samples() []float32 {
	return p.ring.Snapshot()
}

// SampleRate reports the decoded file's sample rate in Hz.
func (p *FilePlayer) SampleRate() float64 {
	return float64(p.format.SampleRate)
}

// Path returns the file backing this source.
func (p *FilePlayer) Path() string {
	return p.path
}

// Close detaches the streamer from the speaker and releases the decoder.
// Safe to call more than once.
func (p *FilePlayer) Close() error {
	p.closeOnce.Do(func() {
		speaker.Lock()
		p.ctrl.Paused = true
		p.ctrl.Streamer = nil
		speaker.Unlock()
		p.closeErr = p.stream.Close()
	})
	return p.closeErr
}

// teeStreamer forwards src to the speaker and mirrors a mono mixdown into
// the ring. Stream runs on the speaker goroutine; the ring's lock is the
// only state shared with the render side.
type teeStreamer struct {
	src  beep.StreamSeekCloser
	ring *ring
	loop bool
	mono []float32
}

func (t *teeStreamer) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		n, ok := t.src.Stream(samples[filled:])
		t.mirror(samples[filled : filled+n])
		filled += n
		if ok {
			continue
		}
		if !t.loop || t.src.Seek(0) != nil {
			break
		}
	}
	return filled, filled > 0
}

func (t *teeStreamer) Err() error {
	return t.src.Err()
}

func (t *teeStreamer) mirror(chunk [][2]float64) {
	if len(chunk) == 0 {
		return
	}
	if cap(t.mono) < len(chunk) {
		t.mono = make([]float32, len(chunk))
	}
	mono := t.mono[:len(chunk)]
	for i, s := range chunk {
		mono[i] = float32((s[0] + s[1]) / 2)
	}
	t.ring.Write(mono)
}
