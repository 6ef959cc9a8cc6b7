package render

import (
	"image"
	"image/color"
)

// Buffer is an RGBA raster the scene renderer and effect stages write into.
// It embeds *image.RGBA so sinks and encoders can consume it directly; the
// helpers below write straight to Pix with clipping, no per-pixel interface
// calls.
type Buffer struct {
	*image.RGBA
	w, h int
}

// NewBuffer allocates a w by h buffer with all pixels transparent black.
func NewBuffer(w, h int) *Buffer {
	return &Buffer{
		RGBA: image.NewRGBA(image.Rect(0, 0, w, h)),
		w:    w,
		h:    h,
	}
}

// W returns the buffer width in pixels.
func (b *Buffer) W() int { return b.w }

// H returns the buffer height in pixels.
func (b *Buffer) H() int { return b.h }

// Fill paints every pixel with c.
func (b *Buffer) Fill(c color.RGBA) {
	if b.w == 0 || b.h == 0 {
		return
	}
	row := b.Pix[:b.w*4]
	for x := 0; x < b.w; x++ {
		off := x * 4
		row[off+0] = c.R
		row[off+1] = c.G
		row[off+2] = c.B
		row[off+3] = c.A
	}
	for y := 1; y < b.h; y++ {
		copy(b.Pix[y*b.Stride:y*b.Stride+b.w*4], row)
	}
}

// SetRGBA writes an opaque pixel, ignoring out-of-bounds coordinates.
func (b *Buffer) SetRGBA(x, y int, c color.RGBA) {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return
	}
	off := y*b.Stride + x*4
	b.Pix[off+0] = c.R
	b.Pix[off+1] = c.G
	b.Pix[off+2] = c.B
	b.Pix[off+3] = 255
}

// BlendPixel composites c over the existing pixel with the given coverage
// alpha in [0,1]. Out-of-bounds coordinates are ignored.
func (b *Buffer) BlendPixel(x, y int, c color.RGBA, alpha float64) {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return
	}
	if alpha <= 0 {
		return
	}
	if alpha >= 1 {
		b.SetRGBA(x, y, c)
		return
	}
	off := y*b.Stride + x*4
	b.Pix[off+0] = blendChannel(b.Pix[off+0], c.R, alpha)
	b.Pix[off+1] = blendChannel(b.Pix[off+1], c.G, alpha)
	b.Pix[off+2] = blendChannel(b.Pix[off+2], c.B, alpha)
	b.Pix[off+3] = 255
}

// FillRect paints an opaque rectangle clipped to the buffer.
func (b *Buffer) FillRect(x, y, w, h int, c color.RGBA) {
	x0, y0, x1, y1 := b.clipRect(x, y, w, h)
	for yy := y0; yy < y1; yy++ {
		off := yy*b.Stride + x0*4
		for xx := x0; xx < x1; xx++ {
			b.Pix[off+0] = c.R
			b.Pix[off+1] = c.G
			b.Pix[off+2] = c.B
			b.Pix[off+3] = 255
			off += 4
		}
	}
}

// BlendRect composites a rectangle of c over the buffer at the given alpha,
// clipped to the buffer.
func (b *Buffer) BlendRect(x, y, w, h int, c color.RGBA, alpha float64) {
	if alpha <= 0 {
		return
	}
	if alpha >= 1 {
		b.FillRect(x, y, w, h, c)
		return
	}
	x0, y0, x1, y1 := b.clipRect(x, y, w, h)
	for yy := y0; yy < y1; yy++ {
		off := yy*b.Stride + x0*4
		for xx := x0; xx < x1; xx++ {
			b.Pix[off+0] = blendChannel(b.Pix[off+0], c.R, alpha)
			b.Pix[off+1] = blendChannel(b.Pix[off+1], c.G, alpha)
			b.Pix[off+2] = blendChannel(b.Pix[off+2], c.B, alpha)
			b.Pix[off+3] = 255
			off += 4
		}
	}
}

func (b *Buffer) clipRect(x, y, w, h int) (x0, y0, x1, y1 int) {
	x0, y0 = x, y
	x1, y1 = x+w, y+h
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > b.w {
		x1 = b.w
	}
	if y1 > b.h {
		y1 = b.h
	}
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return x0, y0, x1, y1
}

func blendChannel(bg, fg uint8, alpha float64) uint8 {
	return uint8(float64(fg)*alpha + float64(bg)*(1-alpha))
}
