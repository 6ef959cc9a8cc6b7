package render

import (
	"image/color"
	"math"
	"math/rand"

	"github.com/hexvane/oxidescope/internal/analyzer"
)

var black = color.RGBA{A: 255}

// Chain applies the CRT degradation stages to the output buffer, in place,
// in a fixed order. The vignette mask and scratch buffers are sized once per
// resolution and reused, so steady-state ticks allocate nothing.
type Chain struct {
	w, h int
	rng  *rand.Rand

	rowScratch []uint8
	snapshot   []uint8
	vignette   []float64
}

// NewChain builds a chain for w by h output buffers using the given random
// source for noise placement and dropout timing.
func NewChain(w, h int, rng *rand.Rand) *Chain {
	c := &Chain{rng: rng}
	c.ensureSize(w, h)
	return c
}

func (c *Chain) ensureSize(w, h int) {
	if c.w == w && c.h == h {
		return
	}
	c.w = w
	c.h = h
	c.rowScratch = make([]uint8, w*4)
	c.snapshot = make([]uint8, w*h*4)
	c.buildVignette()
}

// Apply runs every stage over buf. Order is fixed; each stage gates itself
// on the degradation amount or the audio features, and none of them can
// fail. A zero Features value renders the chain as if the signal were
// silent.
func (c *Chain) Apply(buf *Buffer, feat analyzer.Features, deg, t float64, pal Palette) {
	c.ensureSize(buf.W(), buf.H())

	c.wobble(buf, deg, feat.WobblePhase, t)
	c.aberrate(buf, deg)
	c.scanlines(buf)
	c.applyVignette(buf)
	c.phosphor(buf, pal)
	c.noise(buf, deg)
	c.dropout(buf, deg)
	c.crackleFlash(buf, feat.Crackle)
	c.edgeGlow(buf, pal)
}

// wobbleAmount is the peak horizontal displacement of the wobble stage for
// a given degradation and LFO phase.
func wobbleAmount(deg, phase float64) float64 {
	return deg * 10 * (1 + 0.5*math.Sin(2*math.Pi*phase))
}

// wobble shifts each row horizontally by a time and phase modulated offset,
// the tape-transport sway. Sampling is edge-clamped and never wraps.
func (c *Chain) wobble(buf *Buffer, deg, phase, t float64) {
	if deg <= 0.1 {
		return
	}
	amount := wobbleAmount(deg, phase)
	w := buf.W()
	for y := 0; y < buf.H(); y++ {
		offset := int(math.Floor(math.Sin(0.1*float64(y)+20*t) * amount))
		if offset == 0 {
			continue
		}
		row := buf.Pix[y*buf.Stride : y*buf.Stride+w*4]
		copy(c.rowScratch, row)
		for x := 0; x < w; x++ {
			si := clampInt(x+offset, 0, w-1) * 4
			di := x * 4
			row[di+0] = c.rowScratch[si+0]
			row[di+1] = c.rowScratch[si+1]
			row[di+2] = c.rowScratch[si+2]
			row[di+3] = c.rowScratch[si+3]
		}
	}
}

// aberrationShift is the channel displacement in pixels, monotonically
// non-decreasing in deg.
func aberrationShift(deg float64) int {
	return int(math.Floor(deg * 3))
}

// aberrate displaces the red channel left and the blue channel right. Both
// channels sample the frame as it stood entering the stage, so the shift
// never cascades within a pass.
func (c *Chain) aberrate(buf *Buffer, deg float64) {
	if deg <= 0.2 {
		return
	}
	shift := aberrationShift(deg)
	if shift == 0 {
		return
	}
	copy(c.snapshot, buf.Pix)
	w, h := buf.W(), buf.H()
	for y := 0; y < h; y++ {
		rowOff := y * buf.Stride
		for x := 0; x < w; x++ {
			rx := clampInt(x-shift, 0, w-1)
			bx := clampInt(x+shift, 0, w-1)
			di := rowOff + x*4
			buf.Pix[di+0] = c.snapshot[rowOff+rx*4+0]
			buf.Pix[di+2] = c.snapshot[rowOff+bx*4+2]
		}
	}
}

// scanlines darkens every third row by 15%.
func (c *Chain) scanlines(buf *Buffer) {
	for y := 0; y < buf.H(); y += 3 {
		buf.BlendRect(0, y, buf.W(), 1, black, 0.15)
	}
}

func (c *Chain) buildVignette() {
	c.vignette = make([]float64, c.w*c.h)
	cx := float64(c.w) / 2
	cy := float64(c.h) / 2
	h := float64(c.h)
	r0, r1, r2 := 0.3*h, 0.7*h, 0.8*h

	i := 0
	for y := 0; y < c.h; y++ {
		dy := float64(y) - cy
		for x := 0; x < c.w; x++ {
			dx := float64(x) - cx
			dist := math.Sqrt(dx*dx + dy*dy)
			switch {
			case dist <= r0:
				c.vignette[i] = 0
			case dist <= r1:
				c.vignette[i] = lerp(0, 0.2, (dist-r0)/(r1-r0))
			case dist <= r2:
				c.vignette[i] = lerp(0.2, 0.6, (dist-r1)/(r2-r1))
			default:
				c.vignette[i] = 0.6
			}
			i++
		}
	}
}

// applyVignette darkens toward the corners using the precomputed mask:
// clear inside 0.3h, 20% black at 0.7h, 60% at 0.8h and beyond.
func (c *Chain) applyVignette(buf *Buffer) {
	i := 0
	for y := 0; y < buf.H(); y++ {
		off := y * buf.Stride
		for x := 0; x < buf.W(); x++ {
			if a := c.vignette[i]; a > 0 {
				buf.Pix[off+0] = blendChannel(buf.Pix[off+0], 0, a)
				buf.Pix[off+1] = blendChannel(buf.Pix[off+1], 0, a)
				buf.Pix[off+2] = blendChannel(buf.Pix[off+2], 0, a)
			}
			i++
			off += 4
		}
	}
}

// phosphor lays the palette accent over the whole frame at 3%.
func (c *Chain) phosphor(buf *Buffer, pal Palette) {
	buf.BlendRect(0, 0, buf.W(), buf.H(), toRGBA(pal.Accent), 0.03)
}

// noise scatters white pixel blocks across the frame; count and opacity
// both scale with deg.
func (c *Chain) noise(buf *Buffer, deg float64) {
	if deg <= 0.3 {
		return
	}
	count := int(100 * deg)
	for i := 0; i < count; i++ {
		x := c.rng.Intn(buf.W())
		y := c.rng.Intn(buf.H())
		alpha := c.rng.Float64() * deg * 0.3
		buf.BlendRect(x, y, PixelSize, PixelSize, white, alpha)
	}
}

// dropoutChance is the per-frame probability of a dropout bar once deg
// passes 0.5.
func dropoutChance(deg float64) float64 {
	if deg <= 0.5 {
		return 0
	}
	return (deg - 0.5) * 0.05
}

// dropout occasionally blanks a full-width horizontal bar, tape-dropout
// style.
func (c *Chain) dropout(buf *Buffer, deg float64) {
	if deg <= 0.5 {
		return
	}
	if c.rng.Float64() >= dropoutChance(deg) {
		return
	}
	y := c.rng.Intn(buf.H())
	barH := 2 + c.rng.Intn(8)
	buf.FillRect(0, y, buf.W(), barH, black)
}

// crackleFlash washes the frame white when crackle activity spikes.
func (c *Chain) crackleFlash(buf *Buffer, crackle float64) {
	if crackle <= 0.1 {
		return
	}
	buf.BlendRect(0, 0, buf.W(), buf.H(), white, clamp01(crackle*0.2))
}

// edgeGlow strokes a 2px inset border in the accent color at 12%.
func (c *Chain) edgeGlow(buf *Buffer, pal Palette) {
	accent := toRGBA(pal.Accent)
	w, h := buf.W(), buf.H()
	buf.BlendRect(0, 0, w, 2, accent, 0.12)
	buf.BlendRect(0, h-2, w, 2, accent, 0.12)
	buf.BlendRect(0, 2, 2, h-4, accent, 0.12)
	buf.BlendRect(w-2, 2, 2, h-4, accent, 0.12)
}
