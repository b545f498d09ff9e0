package depthmap

import (
	"fmt"
	"image"
	"math"
)

// Palette selects the color mapping used when rendering a depth map.
type Palette string

const (
	// PaletteGray renders an 8-bit grayscale image (near = dark, far = bright).
	PaletteGray Palette = "gray"
	// PalettePlasma renders matplotlib's plasma colormap (near = dark purple,
	// far = yellow), the conventional rendering for monocular depth output.
	PalettePlasma Palette = "plasma"
)

// DefaultPalette is used when a request does not name one.
const DefaultPalette = PalettePlasma

// ParsePalette validates a palette name. Empty selects the default.
func ParsePalette(s string) (Palette, error) {
	switch Palette(s) {
	case "":
		return DefaultPalette, nil
	case PaletteGray, PalettePlasma:
		return Palette(s), nil
	default:
		return "", fmt.Errorf("unknown palette %q (want %q or %q)", s, PaletteGray, PalettePlasma)
	}
}

// Render converts a depth map into an 8-bit image. Values are min-max scaled
// to [0,255] before the palette lookup; a constant map renders uniformly at
// mid intensity instead of dividing by zero. Invert flips the scale so that
// models emitting inverse depth (larger = nearer) render with the same
// near-dark convention. Rendering is deterministic for identical inputs.
func Render(m *DepthMap, p Palette, invert bool) (image.Image, error) {
	if m.Empty() {
		return nil, ErrEmptyMap
	}
	min, max := m.MinMax()
	span := max - min
	levels := make([]uint8, len(m.Data))
	for i, v := range m.Data {
		var t float64
		if span == 0 {
			t = 0.5
		} else {
			t = float64(v-min) / float64(span)
		}
		if invert {
			t = 1 - t
		}
		levels[i] = uint8(math.Round(t * 255))
	}
	switch p {
	case PaletteGray:
		img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
		copy(img.Pix, levels)
		return img, nil
	case PalettePlasma:
		img := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
		for i, lv := range levels {
			c := plasmaLUT[lv]
			o := i * 4
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = c.R, c.G, c.B, 0xff
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unknown palette %q", p)
	}
}
