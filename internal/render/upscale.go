package render

import (
	"fmt"

	xdraw "golang.org/x/image/draw"
)

// Upscale magnifies src into dst with nearest-neighbor sampling, keeping
// the hard pixel-block edges that define the low-res look. dst must be
// exactly PixelSize times src in both axes; anything else is a programmer
// error and panics. The frame loop's recover turns such a violation into a
// skipped frame instead of a crash.
func Upscale(dst, src *Buffer) {
	if dst.W() != src.W()*PixelSize || dst.H() != src.H()*PixelSize {
		panic(fmt.Sprintf("render: upscale size mismatch: src %dx%d dst %dx%d",
			src.W(), src.H(), dst.W(), dst.H()))
	}
	xdraw.NearestNeighbor.Scale(dst.RGBA, dst.Bounds(), src.RGBA, src.Bounds(), xdraw.Src, nil)
}
