package raster

import (
	"fmt"
	"image/color"
)

// RGBA represents a color with red, green, blue, and alpha components.
// Each component is in the range [0, 1].
type RGBA struct {
	R, G, B, A float64
}

// Common colors.
var (
	Transparent = RGBA{0, 0, 0, 0}
	Black       = RGBA{0, 0, 0, 1}
	White       = RGBA{1, 1, 1, 1}
)

// Color converts RGBA to the standard color.Color interface.
// The returned color is non-premultiplied.
func (c RGBA) Color() color.Color {
	return color.NRGBA{
		R: uint8(clamp255(c.R * 255)),
		G: uint8(clamp255(c.G * 255)),
		B: uint8(clamp255(c.B * 255)),
		A: uint8(clamp255(c.A * 255)),
	}
}

// FromColor converts a standard color.Color to RGBA.
func FromColor(c color.Color) RGBA {
	r, g, b, a := c.RGBA()
	return RGBA{
		R: float64(r) / 65535,
		G: float64(g) / 65535,
		B: float64(b) / 65535,
		A: float64(a) / 65535,
	}
}

// ParseHex parses a request color string into an RGBA value.
//
// The leading '#' is optional. The remaining hex digits are right-padded
// with 'f' up to 8 digits before being read as RRGGBBAA, so "ff0000" means
// opaque red and "ff00" means opaque red-ish with full green padding. Any
// non-hex digit is an error, as is a string longer than 8 digits.
func ParseHex(s string) (RGBA, error) {
	if s != "" && s[0] == '#' {
		s = s[1:]
	}
	if s == "" {
		return RGBA{}, fmt.Errorf("raster: empty color")
	}
	if len(s) > 8 {
		return RGBA{}, fmt.Errorf("raster: color %q too long", s)
	}

	var digits [8]byte
	for i := range digits {
		digits[i] = 'f'
	}
	copy(digits[:], s)

	var comps [4]uint8
	for i := 0; i < 4; i++ {
		hi, ok1 := hexVal(digits[i*2])
		lo, ok2 := hexVal(digits[i*2+1])
		if !ok1 || !ok2 {
			return RGBA{}, fmt.Errorf("raster: invalid hex color %q", s)
		}
		comps[i] = hi<<4 | lo
	}

	return RGBA{
		R: float64(comps[0]) / 255,
		G: float64(comps[1]) / 255,
		B: float64(comps[2]) / 255,
		A: float64(comps[3]) / 255,
	}, nil
}

func hexVal(c byte) (uint8, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
