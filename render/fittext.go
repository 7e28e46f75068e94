// Package render turns shapes, fonts and text into finished images. It
// wires the boundary-fitting layout engine and the font rasterizer
// together and produces the final resized output.
package render

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/shapefill/shapefill/font"
	"github.com/shapefill/shapefill/layout"
	"github.com/shapefill/shapefill/raster"
)

// DefaultUpscaleWidth is the minimum working width shapes are scaled up
// to before fitting. Fitting at a generous resolution keeps boundary
// scanning and justification accurate for small input shapes.
const DefaultUpscaleWidth = 2000

// FitOptions configures FitText.
type FitOptions struct {
	// Color is the text color.
	Color raster.RGBA

	// Width and Height select the output size. When either is zero the
	// output uses the source shape's dimensions.
	Width  int
	Height int

	// UpscaleWidth overrides DefaultUpscaleWidth. Values below the shape
	// width have no effect; the working copy is never downscaled.
	UpscaleWidth int

	// Debug draws boundary end markers into the output.
	Debug bool
}

// faceSource adapts *font.Source to the layout engine.
type faceSource struct {
	src *font.Source
}

func (fs faceSource) FaceAt(size float64) layout.Measurer {
	return fs.src.Face(size)
}

// FitText lays text out to fill the opaque region of shape and renders it
// onto a transparent canvas. The shape itself is never drawn; only the
// text ink appears in the output.
//
// Fitting errors from the layout engine (layout.ErrNoWords,
// layout.ErrUnfit) are returned wrapped and can be matched with errors.Is.
func FitText(shape image.Image, text string, src *font.Source, opts FitOptions) (*image.RGBA, error) {
	b := shape.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW <= 0 || srcH <= 0 {
		return nil, fmt.Errorf("render: empty shape image")
	}

	upscale := opts.UpscaleWidth
	if upscale <= 0 {
		upscale = DefaultUpscaleWidth
	}
	scaledW := srcW
	if scaledW < upscale {
		scaledW = upscale
	}
	scaledH := int(float64(scaledW) * float64(srcH) / float64(srcW))
	if scaledH <= 0 {
		return nil, fmt.Errorf("render: degenerate shape aspect ratio")
	}

	log := logger()
	pix := raster.FromImage(raster.ResizeFast(shape, scaledW, scaledH))

	res, err := layout.Fit(pix, text, faceSource{src: src}, layout.Options{
		Trace: func(size, lower, upper float64) {
			log.Debug("fit iteration",
				slog.Float64("size", size),
				slog.Float64("lower", lower),
				slog.Float64("upper", upper))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	canvas := raster.NewPixmap(scaledW, scaledH)
	face := src.Face(res.Size)
	if err := drawLines(canvas, res.Lines, face, opts.Color); err != nil {
		return nil, err
	}
	if opts.Debug {
		drawBoundaryMarkers(canvas, res.Boundaries)
	}

	outW, outH := opts.Width, opts.Height
	if outW <= 0 || outH <= 0 {
		outW, outH = srcW, srcH
	}

	log.Info("text fitted",
		slog.Float64("font_size", res.Size),
		slog.Int("lines", len(res.Lines)),
		slog.Int("words", res.WordCount()))

	return raster.Resize(canvas.RGBA(), outW, outH), nil
}

// drawLines renders justified lines onto the canvas. The baseline sits
// slightly below the scan row so cap-height glyphs straddle it, matching
// how the boundaries were sampled. Single-word lines are centered in
// their boundary.
func drawLines(canvas *raster.Pixmap, lines []*layout.Line, face *font.Face, col raster.RGBA) error {
	m := face.Metrics()

	d, err := face.NewDrawer(canvas.RGBA(), col.Color())
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	for _, line := range lines {
		if len(line.Words) == 0 {
			continue
		}

		baseline := float64(line.Boundary.Y) - 0.8*m.CapHeight + m.Ascent
		x := float64(line.Boundary.StartX)
		if len(line.Words) == 1 {
			x += (line.Boundary.Length() - line.WordWidth(0)) / 2
		}

		for i, word := range line.Words {
			d.DrawString(word, x, baseline)
			x += line.WordWidth(i) + line.Spacing
		}
	}
	return nil
}

// markerColor is the green used for debug boundary markers.
var markerColor = raster.RGBA{G: 1, A: 1}

const markerRadius = 5

func drawBoundaryMarkers(canvas *raster.Pixmap, boundaries []layout.Boundary) {
	for _, b := range boundaries {
		drawMarker(canvas, b.StartX, b.Y)
		drawMarker(canvas, b.EndX, b.Y)
	}
}

func drawMarker(canvas *raster.Pixmap, cx, cy int) {
	for dy := -markerRadius; dy <= markerRadius; dy++ {
		for dx := -markerRadius; dx <= markerRadius; dx++ {
			if dx*dx+dy*dy <= markerRadius*markerRadius {
				canvas.SetPixel(cx+dx, cy+dy, markerColor)
			}
		}
	}
}
