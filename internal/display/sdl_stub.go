//go:build !sdl

package display

import (
	"errors"
	"image"
)

var errSDLDisabled = errors.New("display: built without sdl support, rebuild with -tags sdl")

// SDLConfig sizes the window. Unused in builds without the sdl tag.
type SDLConfig struct {
	Title  string
	Width  int
	Height int
	Scale  int
}

// SDLSink is a placeholder so callers compile without the sdl tag.
type SDLSink struct{}

// NewSDL always fails in builds without the sdl tag.
func NewSDL(SDLConfig) (*SDLSink, error) { return nil, errSDLDisabled }

// Present always fails in builds without the sdl tag.
func (*SDLSink) Present(*image.RGBA, string) error { return errSDLDisabled }

// Close is a no-op.
func (*SDLSink) Close() error { return nil }

// SupportsSDL reports whether the binary was built with the sdl tag.
func SupportsSDL() bool { return false }
