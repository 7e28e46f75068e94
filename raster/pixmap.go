// Package raster provides the pixel-level primitives shared by the
// rendering pipeline: an RGBA pixel buffer, color parsing, image decoding
// and resizing, and 2D affine transforms.
package raster

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // register decoders for shape uploads
	_ "image/jpeg"
	"image/png"
	"io"
)

// Pixmap represents a rectangular RGBA pixel buffer.
type Pixmap struct {
	width  int
	height int
	data   []uint8 // RGBA, 4 bytes per pixel
}

// NewPixmap creates a transparent pixmap with the given dimensions.
func NewPixmap(width, height int) *Pixmap {
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// FromImage converts any image into a Pixmap.
func FromImage(img image.Image) *Pixmap {
	b := img.Bounds()
	p := NewPixmap(b.Dx(), b.Dy())
	draw.Draw(p.RGBA(), image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Src)
	return p
}

// Decode reads and decodes an image (PNG, JPEG or GIF).
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("raster: decode image: %w", err)
	}
	return img, nil
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int { return p.width }

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int { return p.height }

// Size returns the pixmap dimensions.
func (p *Pixmap) Size() (w, h int) { return p.width, p.height }

// Data returns the raw pixel data (RGBA format).
func (p *Pixmap) Data() []uint8 { return p.data }

// RGBA returns an *image.RGBA sharing the pixmap's backing buffer.
// Drawing into the returned image mutates the pixmap.
func (p *Pixmap) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    p.data,
		Stride: p.width * 4,
		Rect:   image.Rect(0, 0, p.width, p.height),
	}
}

// SetPixel sets the color of a single pixel. Out-of-range coordinates are
// ignored.
func (p *Pixmap) SetPixel(x, y int, c RGBA) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	p.data[i+0] = uint8(clamp255(c.R * 255))
	p.data[i+1] = uint8(clamp255(c.G * 255))
	p.data[i+2] = uint8(clamp255(c.B * 255))
	p.data[i+3] = uint8(clamp255(c.A * 255))
}

// GetPixel returns the color of a single pixel.
// Out-of-range coordinates return Transparent.
func (p *Pixmap) GetPixel(x, y int) RGBA {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return Transparent
	}
	i := (y*p.width + x) * 4
	return RGBA{
		R: float64(p.data[i+0]) / 255,
		G: float64(p.data[i+1]) / 255,
		B: float64(p.data[i+2]) / 255,
		A: float64(p.data[i+3]) / 255,
	}
}

// Alpha returns the raw alpha byte of a pixel, 0 for out-of-range
// coordinates. This is the hot path of boundary scanning.
func (p *Pixmap) Alpha(x, y int) uint8 {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return 0
	}
	return p.data[(y*p.width+x)*4+3]
}

// Opaque reports whether the pixel at (x, y) has any coverage.
func (p *Pixmap) Opaque(x, y int) bool {
	return p.Alpha(x, y) > 0
}

// Clear fills the entire pixmap with a color.
func (p *Pixmap) Clear(c RGBA) {
	r := uint8(clamp255(c.R * 255))
	g := uint8(clamp255(c.G * 255))
	b := uint8(clamp255(c.B * 255))
	a := uint8(clamp255(c.A * 255))
	for i := 0; i < len(p.data); i += 4 {
		p.data[i+0] = r
		p.data[i+1] = g
		p.data[i+2] = b
		p.data[i+3] = a
	}
}

// EncodePNG writes the pixmap as PNG.
func (p *Pixmap) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, p.RGBA()); err != nil {
		return fmt.Errorf("raster: encode png: %w", err)
	}
	return nil
}
