package render

import "testing"

func TestByModeFallsBackToFirst(t *testing.T) {
	first := ByMode(0)
	for _, mode := range []int{-1, -99, PaletteCount(), PaletteCount() + 7} {
		got := ByMode(mode)
		if got.Name != first.Name {
			t.Fatalf("mode %d: got palette %q want %q", mode, got.Name, first.Name)
		}
	}
}

func TestPaletteNamesMatchTable(t *testing.T) {
	names := PaletteNames()
	if len(names) != PaletteCount() {
		t.Fatalf("got %d names want %d", len(names), PaletteCount())
	}
	for i, name := range names {
		if ByMode(i).Name != name {
			t.Fatalf("mode %d: name %q want %q", i, ByMode(i).Name, name)
		}
	}
}

func TestPalettesAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < PaletteCount(); i++ {
		p := ByMode(i)
		if seen[p.Name] {
			t.Fatalf("duplicate palette name %q", p.Name)
		}
		seen[p.Name] = true
	}
}

func TestSkyAtHitsStops(t *testing.T) {
	p := ByMode(0)
	if got := p.SkyAt(0); got != p.Sky[0] {
		t.Fatalf("top of gradient: got %v want %v", got, p.Sky[0])
	}
	if got := p.SkyAt(1); got != p.Sky[4] {
		t.Fatalf("bottom of gradient: got %v want %v", got, p.Sky[4])
	}
	if got := p.SkyAt(0.5); got != p.Sky[2] {
		t.Fatalf("middle stop: got %v want %v", got, p.Sky[2])
	}
	if got := p.SkyAt(-2); got != p.Sky[0] {
		t.Fatalf("below range: got %v want %v", got, p.Sky[0])
	}
	if got := p.SkyAt(3); got != p.Sky[4] {
		t.Fatalf("above range: got %v want %v", got, p.Sky[4])
	}
}
