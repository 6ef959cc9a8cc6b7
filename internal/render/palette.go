package render

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Palette holds one scene variant: five sky gradient stops (top to bottom)
// plus building silhouette, lit-window and accent colors.
type Palette struct {
	Name     string
	Sky      [5]colorful.Color
	Building colorful.Color
	Window   colorful.Color
	Accent   colorful.Color
}

var palettes = []Palette{
	{
		Name: "midnight",
		Sky: [5]colorful.Color{
			hex("#05060f"), hex("#0a0e23"), hex("#121a38"), hex("#1f2b52"), hex("#35406e"),
		},
		Building: hex("#0a0d16"),
		Window:   hex("#ffd27f"),
		Accent:   hex("#4fc1ff"),
	},
	{
		Name: "vapor",
		Sky: [5]colorful.Color{
			hex("#0d0221"), hex("#1d0f3a"), hex("#35155e"), hex("#5c2a83"), hex("#8b4a9e"),
		},
		Building: hex("#140826"),
		Window:   hex("#ff9ecf"),
		Accent:   hex("#ff71ce"),
	},
	{
		Name: "rust",
		Sky: [5]colorful.Color{
			hex("#100a05"), hex("#241207"), hex("#3d1d0a"), hex("#5c2e10"), hex("#7f4418"),
		},
		Building: hex("#180d05"),
		Window:   hex("#ffb25e"),
		Accent:   hex("#ff8c42"),
	},
	{
		Name: "phosphor",
		Sky: [5]colorful.Color{
			hex("#020703"), hex("#04120a"), hex("#082015"), hex("#0d3020"), hex("#15482f"),
		},
		Building: hex("#031008"),
		Window:   hex("#7dffb0"),
		Accent:   hex("#39ff88"),
	},
}

// ByMode returns the palette for a mode index. Indices outside the table
// fall back to the first palette; this never fails.
func ByMode(mode int) Palette {
	if mode < 0 || mode >= len(palettes) {
		return palettes[0]
	}
	return palettes[mode]
}

// PaletteCount returns the number of scene variants.
func PaletteCount() int {
	return len(palettes)
}

// PaletteNames returns the variant names indexed by mode.
func PaletteNames() []string {
	names := make([]string, len(palettes))
	for i, p := range palettes {
		names[i] = p.Name
	}
	return names
}

// SkyAt blends the five gradient stops linearly at frac in [0,1], top to
// bottom, stop i sitting at position i/4.
func (p Palette) SkyAt(frac float64) colorful.Color {
	if frac <= 0 {
		return p.Sky[0]
	}
	if frac >= 1 {
		return p.Sky[4]
	}
	pos := frac * 4
	i := int(pos)
	return p.Sky[i].BlendRgb(p.Sky[i+1], pos-float64(i))
}

func hex(s string) colorful.Color {
	c, _ := colorful.Hex(s)
	return c
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
