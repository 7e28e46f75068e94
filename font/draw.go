package font

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Drawer renders text from one Face into one destination image. It wraps
// an x/image font.Drawer so the rasterizer face is built once and reused
// across many words.
//
// Drawer is NOT safe for concurrent use.
type Drawer struct {
	otFace xfont.Face
	d      *xfont.Drawer
}

// NewDrawer creates a Drawer that renders face onto dst in the given
// color. Close must be called to release the rasterizer face.
func (f *Face) NewDrawer(dst draw.Image, col color.Color) (*Drawer, error) {
	otFace, err := opentype.NewFace(f.source.ot, &opentype.FaceOptions{
		Size:    f.size,
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font: create rasterizer face: %w", err)
	}
	return &Drawer{
		otFace: otFace,
		d: &xfont.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(col),
			Face: otFace,
		},
	}, nil
}

// DrawString draws s with its baseline origin at (x, y).
func (d *Drawer) DrawString(s string, x, y float64) {
	d.d.Dot = fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
	d.d.DrawString(s)
}

// Close releases the underlying rasterizer face.
func (d *Drawer) Close() error {
	return d.otFace.Close()
}

// Draw renders text onto dst with its baseline origin at (x, y).
// Convenience wrapper for one-off draws; use a Drawer when drawing many
// strings with the same face.
func Draw(dst draw.Image, text string, face *Face, x, y float64, col color.Color) error {
	if text == "" || face == nil {
		return nil
	}
	d, err := face.NewDrawer(dst, col)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()
	d.DrawString(text, x, y)
	return nil
}
