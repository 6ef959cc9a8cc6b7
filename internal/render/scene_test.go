package render

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestGenerateSceneDeterministicForSeed(t *testing.T) {
	a := GenerateScene(rand.New(rand.NewSource(7)), 70, 50)
	b := GenerateScene(rand.New(rand.NewSource(7)), 70, 50)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed must generate identical scenes")
	}
	c := GenerateScene(rand.New(rand.NewSource(8)), 70, 50)
	if reflect.DeepEqual(a, c) {
		t.Fatalf("different seeds should not generate identical scenes")
	}
}

func TestGenerateSceneCounts(t *testing.T) {
	s := GenerateScene(rand.New(rand.NewSource(1)), 70, 50)
	if len(s.Buildings) != buildingCount {
		t.Fatalf("buildings: got %d want %d", len(s.Buildings), buildingCount)
	}
	if len(s.Stars) != starCount {
		t.Fatalf("stars: got %d want %d", len(s.Stars), starCount)
	}
}

func TestGenerateSceneGeometryBounds(t *testing.T) {
	s := GenerateScene(rand.New(rand.NewSource(3)), 70, 50)

	prevEnd := 0
	for i, b := range s.Buildings {
		if b.Width < 8 || b.Width >= 20 {
			t.Fatalf("building %d width %d out of [8,20)", i, b.Width)
		}
		if b.Height < 20 || b.Height >= 55 {
			t.Fatalf("building %d height %d out of [20,55)", i, b.Height)
		}
		if i > 0 {
			gap := b.X - prevEnd
			if gap < 0 || gap >= 3 {
				t.Fatalf("building %d gap %d out of [0,3)", i, gap)
			}
		}
		prevEnd = b.X + b.Width
	}

	for i, st := range s.Stars {
		if st.X < 0 || st.X >= 70 {
			t.Fatalf("star %d x=%d out of buffer", i, st.X)
		}
		if st.Y < 0 || st.Y >= 25 {
			t.Fatalf("star %d y=%d outside top half", i, st.Y)
		}
		if st.Brightness < 0.3 || st.Brightness >= 1.0 {
			t.Fatalf("star %d brightness %f out of [0.3,1)", i, st.Brightness)
		}
	}
}

func TestGenerateSceneWindowGrid(t *testing.T) {
	s := GenerateScene(rand.New(rand.NewSource(11)), 70, 50)
	groundY := 50 - groundMargin
	for bi, b := range s.Buildings {
		top := groundY - b.Height
		if len(b.Windows) == 0 {
			t.Fatalf("building %d (%dx%d) should have windows", bi, b.Width, b.Height)
		}
		for wi, win := range b.Windows {
			relX := win.X - b.X
			relY := win.Y - top
			if relX < 2 || relX >= b.Width-2 || (relX-2)%3 != 0 {
				t.Fatalf("building %d window %d column %d off grid", bi, wi, relX)
			}
			if relY < 3 || relY >= b.Height-2 || (relY-3)%4 != 0 {
				t.Fatalf("building %d window %d row %d off grid", bi, wi, relY)
			}
		}
	}
}
