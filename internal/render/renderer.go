package render

import (
	"image/color"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/hexvane/oxidescope/internal/analyzer"
)

// PixelSize is the magnification factor between the low-res scene buffer
// and the output buffer. The scene is drawn at 1/PixelSize resolution and
// upscaled with hard edges to get the blocky look.
const PixelSize = 4

// TickStep is the fixed time increment per tick, ~60Hz nominal. The clock
// advances by exactly this much per frame regardless of wall time so the
// animation stays deterministic under scheduler jitter.
const TickStep = 0.016

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Session owns the mutable render state for one run: the clock, the active
// palette and scene, the low-res buffer and the effect chain. A mode change
// regenerates the scene but keeps the clock running; only a new Session
// resets time.
type Session struct {
	mode    int
	palette Palette
	scene   *Scene

	t   float64
	rng *rand.Rand

	low   *Buffer
	chain *Chain

	skyRows []color.RGBA

	statusBuilder strings.Builder
}

// NewSession creates a session producing outW by outH frames. The random
// source drives scene generation and every stochastic render decision
// (window flicker, noise placement, dropout timing); pass a seeded source
// for deterministic replay, or a time-seeded one in production.
func NewSession(mode, outW, outH int, rng *rand.Rand) *Session {
	lowW := outW / PixelSize
	lowH := outH / PixelSize
	s := &Session{
		mode:  mode,
		rng:   rng,
		low:   NewBuffer(lowW, lowH),
		chain: NewChain(outW, outH, rng),
	}
	s.activateMode(mode)
	return s
}

// Mode returns the active mode index.
func (s *Session) Mode() int {
	return s.mode
}

// Time returns the session clock.
func (s *Session) Time() float64 {
	return s.t
}

// PaletteName returns the active palette's name.
func (s *Session) PaletteName() string {
	return s.palette.Name
}

// SetMode switches the palette and regenerates the scene. The clock keeps
// its value; a mode change never resets time.
func (s *Session) SetMode(mode int) {
	s.activateMode(mode)
}

func (s *Session) activateMode(mode int) {
	s.mode = mode
	s.palette = ByMode(mode)
	s.scene = GenerateScene(s.rng, s.low.W(), s.low.H())
	s.cacheSkyRows()
}

func (s *Session) cacheSkyRows() {
	h := s.low.H()
	if len(s.skyRows) != h {
		s.skyRows = make([]color.RGBA, h)
	}
	denom := float64(h - 1)
	if denom <= 0 {
		denom = 1
	}
	for y := 0; y < h; y++ {
		s.skyRows[y] = toRGBA(s.palette.SkyAt(float64(y) / denom))
	}
}

// RenderFrame advances the clock one tick and draws the next frame into
// out: scene at low resolution, nearest-neighbor upscale, then the effect
// chain. deg is the normalized degradation amount and is clamped to [0,1].
func (s *Session) RenderFrame(out *Buffer, feat analyzer.Features, deg float64) {
	s.t += TickStep
	deg = clampFloat(deg, 0, 1)
	s.renderScene(feat, deg)
	Upscale(out, s.low)
	s.chain.Apply(out, feat, deg, s.t, s.palette)
}

// renderScene draws the night city into the low-res buffer: gradient sky,
// twinkling stars, glow disc, skyline with flickering windows, ground line
// and the audio waveform strip.
func (s *Session) renderScene(feat analyzer.Features, deg float64) {
	low := s.low
	w, h := low.W(), low.H()

	for y := 0; y < h; y++ {
		low.FillRect(0, y, w, 1, s.skyRows[y])
	}

	audioPulse := 1 + 0.5*feat.RMS
	for _, st := range s.scene.Stars {
		twinkle := 0.7 + 0.3*math.Sin(3*s.t+0.5*float64(st.X))
		alpha := st.Brightness * twinkle * audioPulse
		if alpha > 1 {
			alpha = 1
		}
		low.BlendPixel(st.X, st.Y, white, alpha)
	}

	s.drawGlow(feat.RMS)

	buildingColor := toRGBA(s.palette.Building)
	windowColor := toRGBA(s.palette.Window)
	groundY := h - groundMargin
	for _, b := range s.scene.Buildings {
		low.FillRect(b.X, groundY-b.Height, b.Width, b.Height, buildingColor)
		for _, win := range b.Windows {
			lit := win.Lit
			if deg > 0.3 && s.rng.Float64() < deg*0.1 {
				lit = !lit
			}
			if feat.Peak > 0.8 && s.rng.Float64() < 0.1 {
				lit = true
			}
			if !lit {
				continue
			}
			alpha := 1.0
			if math.Sin(10*s.t+float64(win.X)+float64(win.Y)) > 0.95 {
				alpha = 0.5
			}
			low.BlendRect(win.X, win.Y, 2, 2, windowColor, alpha)
		}
	}

	accent := toRGBA(s.palette.Accent)
	low.BlendRect(0, groundY, w, 1, accent, 0.35)

	if feat.RMS > 0 {
		for x := 0; x < w; x++ {
			wave := math.Sin(0.2*float64(x)+5*s.t) * feat.RMS * 3
			barH := int(math.Min(3, math.Abs(wave)))
			if barH > 0 {
				low.BlendRect(x, groundY+1, 1, barH, accent, 0.8)
			}
		}
	}
}

// drawGlow paints the neon glow disc at 75% width, 25% height: an outer
// halo swelling with rms, an inner halo at half its radius, a solid core.
func (s *Session) drawGlow(rms float64) {
	cx := (s.low.W() * 3) / 4
	cy := s.low.H() / 4
	accent := toRGBA(s.palette.Accent)

	radius := 3 + 2*rms
	blendDisc(s.low, cx, cy, radius, accent, 0.15)
	blendDisc(s.low, cx, cy, radius*0.5, accent, 0.3)
	s.low.SetRGBA(cx, cy, accent)
}

func blendDisc(b *Buffer, cx, cy int, r float64, c color.RGBA, alpha float64) {
	if r <= 0 {
		return
	}
	ri := int(math.Ceil(r))
	rr := r * r
	for dy := -ri; dy <= ri; dy++ {
		for dx := -ri; dx <= ri; dx++ {
			if float64(dx*dx+dy*dy) <= rr {
				b.BlendPixel(cx+dx, cy+dy, c, alpha)
			}
		}
	}
}

// Status renders a one-line summary for the terminal status bar.
func (s *Session) Status(feat analyzer.Features, deg, fps float64) string {
	b := &s.statusBuilder
	b.Reset()
	b.Grow(96)
	b.WriteString(s.palette.Name)
	b.WriteString(" | deg ")
	appendFloat(b, deg, 2)
	b.WriteString(" rms ")
	appendFloat(b, feat.RMS, 2)
	b.WriteString(" peak ")
	appendFloat(b, feat.Peak, 2)
	b.WriteString(" crackle ")
	appendFloat(b, feat.Crackle, 2)
	b.WriteString(" | fps ")
	appendFloat(b, fps, 1)
	return b.String()
}

func appendFloat(builder *strings.Builder, value float64, precision int) {
	var buf [32]byte
	b := strconv.AppendFloat(buf[:0], value, 'f', precision, 64)
	builder.Write(b)
}

func clamp01(v float64) float64 {
	return clampFloat(v, 0, 1)
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}
