package render

import (
	"image/color"
	"testing"
)

func TestFillSetsEveryPixel(t *testing.T) {
	b := NewBuffer(5, 4)
	c := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	b.Fill(c)
	for _, p := range [][2]int{{0, 0}, {4, 0}, {0, 3}, {4, 3}, {2, 2}} {
		if got := b.RGBAAt(p[0], p[1]); got != c {
			t.Fatalf("pixel %v: got %v want %v", p, got, c)
		}
	}
}

func TestBlendPixelMixesChannels(t *testing.T) {
	b := NewBuffer(2, 2)
	b.Fill(color.RGBA{A: 255})
	b.BlendPixel(0, 0, white, 0.5)
	got := b.RGBAAt(0, 0)
	if got.R != 127 || got.G != 127 || got.B != 127 {
		t.Fatalf("half blend of white over black: got %v", got)
	}
	if got.A != 255 {
		t.Fatalf("alpha must stay opaque, got %d", got.A)
	}
}

func TestBlendPixelFullAlphaReplaces(t *testing.T) {
	b := NewBuffer(2, 2)
	b.Fill(color.RGBA{R: 40, G: 40, B: 40, A: 255})
	b.BlendPixel(1, 1, white, 1)
	if got := b.RGBAAt(1, 1); got != white {
		t.Fatalf("alpha 1 should replace pixel, got %v", got)
	}
}

func TestBlendPixelIgnoresOutOfBounds(t *testing.T) {
	b := NewBuffer(3, 3)
	b.BlendPixel(-1, 0, white, 1)
	b.BlendPixel(0, -1, white, 1)
	b.BlendPixel(3, 0, white, 1)
	b.BlendPixel(0, 3, white, 1)
	b.SetRGBA(99, 99, white)
}

func TestFillRectClipsToBuffer(t *testing.T) {
	b := NewBuffer(4, 4)
	c := color.RGBA{R: 200, A: 255}
	b.FillRect(-2, -2, 10, 10, c)
	if got := b.RGBAAt(0, 0); got != c {
		t.Fatalf("clipped fill should cover buffer, got %v", got)
	}
	if got := b.RGBAAt(3, 3); got != c {
		t.Fatalf("clipped fill should cover buffer, got %v", got)
	}
}

func TestBlendRectZeroAlphaIsNoOp(t *testing.T) {
	b := NewBuffer(4, 4)
	base := color.RGBA{R: 9, G: 9, B: 9, A: 255}
	b.Fill(base)
	b.BlendRect(0, 0, 4, 4, white, 0)
	if got := b.RGBAAt(2, 2); got != base {
		t.Fatalf("zero alpha blend changed pixel: %v", got)
	}
}
