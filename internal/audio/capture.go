// Package audio provides the sample sources feeding the analyzer: live
// PortAudio capture and WAV file playback. Both expose the same pull
// surface, a rotated snapshot of the most recent mono samples.
package audio

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

const defaultBufferSize = 4096

// Source is the sample feed the app polls once per frame.
type Source interface {
	// Samples returns the latest window of mono samples, oldest first.
	Samples() []float32
	// SampleRate reports the source's sample rate in Hz.
	SampleRate() float64
	Close() error
}

// Config controls how a Capture is opened.
type Config struct {
	// DeviceName selects an input device by case-insensitive substring;
	// empty picks the best available input.
	DeviceName string
	// BufferSize is the ring size in mono samples.
	BufferSize int
	// Channels to request from the device; downmixed to mono.
	Channels int
}

// Capture pulls samples from a PortAudio input stream into a ring buffer.
// The stream callback runs on PortAudio's goroutine; Samples is safe to
// call from the render loop.
type Capture struct {
	stream     *portaudio.Stream
	sampleRate float64
	channels   int
	device     *portaudio.DeviceInfo

	ring *ring
	mono []float32
}

// NewCapture opens and starts an input stream on the configured device.
func NewCapture(cfg Config) (*Capture, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	device, err := findDevice(cfg.DeviceName)
	if err != nil {
		return nil, err
	}

	c := &Capture{
		sampleRate: device.DefaultSampleRate,
		channels:   cfg.Channels,
		device:     device,
		ring:       newRing(cfg.BufferSize),
	}

	framesPerBuffer := cfg.BufferSize / cfg.Channels
	if framesPerBuffer < 64 {
		framesPerBuffer = portaudio.FramesPerBufferUnspecified
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: cfg.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      c.sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}, c.process)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	c.stream = stream

	if err := c.stream.Start(); err != nil {
		_ = c.stream.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}
	return c, nil
}

// Close stops and closes the PortAudio stream.
func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil && !isStoppedStreamErr(err) {
		return err
	}
	return c.stream.Close()
}

// SampleRate returns the stream sample rate in Hz.
func (c *Capture) SampleRate() float64 {
	return c.sampleRate
}

// Device returns the PortAudio device backing the stream.
func (c *Capture) Device() *portaudio.DeviceInfo {
	return c.device
}

// Samples returns the latest ring contents, oldest first.
func (c *Capture) Samples() []float32 {
	return c.ring.Snapshot()
}

// process runs on the PortAudio callback goroutine. The mono scratch is
// reused across calls; PortAudio serializes callbacks per stream.
func (c *Capture) process(in []float32) {
	if c.channels <= 1 {
		c.ring.Write(in)
		return
	}
	frames := len(in) / c.channels
	if cap(c.mono) < frames {
		c.mono = make([]float32, frames)
	}
	mono := c.mono[:frames]
	downmix(mono, in, c.channels)
	c.ring.Write(mono)
}

// findDevice resolves the capture device: a non-empty name selects by
// substring, otherwise the top of the rankInputs ordering wins, which is
// the same ordering ListDevices reports.
func findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name != "" {
		return findDeviceByName(name)
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	defaultIdx, hostIdx := defaultIndexes()
	if ranked := rankInputs(infos, defaultIdx, hostIdx); len(ranked) > 0 {
		return ranked[0], nil
	}
	return nil, fmt.Errorf("no suitable audio input device found")
}

func findDeviceByName(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	name = strings.ToLower(name)
	for _, device := range devices {
		if device.MaxInputChannels == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(device.Name), name) {
			return device, nil
		}
	}
	return nil, fmt.Errorf("audio device %q not found", name)
}

// isStoppedStreamErr reports whether err came from stopping an already
// stopped stream.
func isStoppedStreamErr(err error) bool {
	if err == nil {
		return false
	}
	const invalidStateMsg = "PaErrorCode -9986"
	return strings.Contains(err.Error(), invalidStateMsg)
}
