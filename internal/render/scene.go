package render

import "math/rand"

const (
	buildingCount = 12
	starCount     = 30

	// groundMargin is how far the skyline's ground line sits above the
	// bottom edge of the low-res buffer.
	groundMargin = 5
)

// Window is one window cell of a building, in absolute low-res coordinates.
// Lit is fixed at generation; the per-frame flicker and beat-flash overrides
// happen in the renderer and never write back here.
type Window struct {
	X, Y int
	Lit  bool
}

// Building is one silhouette in the skyline.
type Building struct {
	X, Width, Height int
	Windows          []Window
}

// Star is a background star in low-res coordinates.
type Star struct {
	X, Y       int
	Brightness float64
}

// Scene is the procedural model drawn every tick. Geometry is immutable
// after generation; only rendering decisions vary per frame. A new Scene is
// built on mode activation, never per frame.
type Scene struct {
	Buildings []Building
	Stars     []Star
}

// GenerateScene builds a skyline and star field sized for a w by h low-res
// buffer, consuming the supplied random source. Buildings run left to right
// with width in [8,20), height in [20,55) and a gap in [0,3); windows sit on
// a grid every 4 rows from 3 and every 3 columns from 2, each lit with 70%
// probability. Zero windows is a valid outcome for a short or narrow
// building.
func GenerateScene(rng *rand.Rand, w, h int) *Scene {
	s := &Scene{
		Buildings: make([]Building, 0, buildingCount),
		Stars:     make([]Star, 0, starCount),
	}

	groundY := h - groundMargin
	x := 0
	for i := 0; i < buildingCount; i++ {
		width := 8 + rng.Intn(12)
		height := 20 + rng.Intn(35)
		b := Building{X: x, Width: width, Height: height}

		top := groundY - height
		for wy := 3; wy < height-2; wy += 4 {
			for wx := 2; wx < width-2; wx += 3 {
				b.Windows = append(b.Windows, Window{
					X:   x + wx,
					Y:   top + wy,
					Lit: rng.Float64() < 0.7,
				})
			}
		}

		s.Buildings = append(s.Buildings, b)
		x += width + rng.Intn(3)
	}

	skyH := h / 2
	if skyH < 1 {
		skyH = 1
	}
	for i := 0; i < starCount; i++ {
		s.Stars = append(s.Stars, Star{
			X:          rng.Intn(maxInt(w, 1)),
			Y:          rng.Intn(skyH),
			Brightness: 0.3 + rng.Float64()*0.7,
		})
	}

	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
