//go:build sdl

package display

import (
	"fmt"
	"image"

	"github.com/veandco/go-sdl2/sdl"
)

// SDLConfig sizes the window. Scale multiplies the frame resolution on
// screen while the logical size keeps the coordinate space intact.
type SDLConfig struct {
	Title  string
	Width  int
	Height int
	Scale  int
}

// SDLSink streams frames into a texture inside an SDL window.
type SDLSink struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	width    int
	height   int
	title    string
	closed   bool
}

// NewSDL opens the window and allocates the streaming texture.
func NewSDL(cfg SDLConfig) (*SDLSink, error) {
	if cfg.Scale < 1 {
		cfg.Scale = 1
	}
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("init sdl video: %w", err)
	}
	// Nearest filtering keeps the pixel grid crisp when the window is
	// larger than the frame.
	sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "0")

	window, err := sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width*cfg.Scale), int32(cfg.Height*cfg.Scale),
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, fmt.Errorf("create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	if err := renderer.SetLogicalSize(int32(cfg.Width), int32(cfg.Height)); err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, fmt.Errorf("set logical size: %w", err)
	}

	// ABGR8888 is R,G,B,A in memory on little-endian hosts, matching the
	// byte layout of image.RGBA.Pix, so frames upload without repacking.
	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_ABGR8888,
		sdl.TEXTUREACCESS_STREAMING,
		int32(cfg.Width), int32(cfg.Height),
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, fmt.Errorf("create texture: %w", err)
	}

	return &SDLSink{
		window:   window,
		renderer: renderer,
		texture:  texture,
		width:    cfg.Width,
		height:   cfg.Height,
	}, nil
}

// Present uploads the frame, flips the renderer and pumps the SDL event
// queue. It returns ErrClosed once the window is closed by the user.
func (s *SDLSink) Present(img *image.RGBA, status string) error {
	if s.closed {
		return ErrClosed
	}
	b := img.Bounds()
	if b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("frame is %dx%d, window wants %dx%d", b.Dx(), b.Dy(), s.width, s.height)
	}
	if status != "" && status != s.title {
		s.window.SetTitle(status)
		s.title = status
	}

	if err := s.texture.Update(nil, img.Pix, img.Stride); err != nil {
		return fmt.Errorf("update texture: %w", err)
	}
	if err := s.renderer.Clear(); err != nil {
		return fmt.Errorf("clear renderer: %w", err)
	}
	if err := s.renderer.Copy(s.texture, nil, nil); err != nil {
		return fmt.Errorf("copy texture: %w", err)
	}
	s.renderer.Present()

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if _, ok := event.(*sdl.QuitEvent); ok {
			return ErrClosed
		}
	}
	return nil
}

// Close tears the window down. Safe to call more than once.
func (s *SDLSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.QuitSubSystem(sdl.INIT_VIDEO)
	return nil
}

// SupportsSDL reports whether the binary was built with the sdl tag.
func SupportsSDL() bool { return true }
