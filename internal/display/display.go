// Package display holds the frame sinks: an SDL window (behind the sdl
// build tag), a tcell terminal view and a null sink for headless runs. A
// sink consumes one finished frame per tick from the render loop.
package display

import (
	"errors"
	"image"
)

// ErrClosed is returned by Present once the sink's window or screen has
// been torn down, or after the user asked to quit.
var ErrClosed = errors.New("display: closed")

// Event is a user input action reported by an interactive sink.
type Event int

const (
	EventNone Event = iota
	EventQuit
	EventNextMode
	EventDegradationUp
	EventDegradationDown
	EventToggleBypass
	EventToggleProfile
)

// Sink consumes finished frames. Present must not retain img beyond the
// call; the render loop reuses the buffer on the next tick. Present and
// Close are called from the loop's goroutine.
type Sink interface {
	Present(img *image.RGBA, status string) error
	Close() error
}

// EventSource is implemented by sinks that own user input themselves (the
// terminal view grabs the tty); the app drains these events instead of
// starting the global keyboard listener.
type EventSource interface {
	Events() <-chan Event
}

// Null discards every frame. Used headless and by the snapshot utility.
type Null struct{}

// Present drops the frame.
func (Null) Present(*image.RGBA, string) error { return nil }

// Close is a no-op.
func (Null) Close() error { return nil }
