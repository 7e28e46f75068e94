package render

import (
	"fmt"
	"image"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/shapefill/shapefill/font"
	"github.com/shapefill/shapefill/raster"
	"github.com/shapefill/shapefill/svgpath"
)

// PathOptions configures TextOnPath.
type PathOptions struct {
	// Color is the text color.
	Color raster.RGBA

	// Width and Height are the output canvas dimensions. Both required.
	Width  int
	Height int

	// LetterSpacing is the extra advance between letters, in pixels.
	LetterSpacing float64

	// WordSpacing is the extra advance added at each space, in pixels.
	WordSpacing float64

	// FlattenTolerance controls curve flattening accuracy. Zero selects
	// a sensible default.
	FlattenTolerance float64
}

// TextOnPath renders text letter by letter along an SVG path. Each letter
// is drawn into its own tile, rotated to the local path tangent, and
// composited with its center on the path at the letter's cumulative
// advance position. Rendering stops once the path is exhausted.
func TextOnPath(pathData, text string, face *font.Face, opts PathOptions) (*image.RGBA, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("render: path text needs positive canvas dimensions")
	}

	path, err := svgpath.Parse(pathData)
	if err != nil {
		return nil, err
	}
	pl := path.Flatten(opts.FlattenTolerance)
	total := pl.Length()
	if total <= 0 {
		return nil, fmt.Errorf("render: path has zero length")
	}

	dst := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	m := face.Metrics()
	tileH := int(math.Ceil(m.LineHeight()))
	if tileH < 1 {
		return nil, fmt.Errorf("render: face too small to render")
	}

	runes := []rune(text)
	pos := 0.0
	drawn := 0

	for i, r := range runes {
		if r == ' ' {
			pos += opts.WordSpacing + face.Advance(" ")
			continue
		}

		lw := face.Advance(string(r))
		if lw <= 0 {
			continue
		}

		center := pos + lw/2
		if center > total {
			break
		}

		pt := pl.PointAtLength(center)
		tan := pl.TangentAtLength(center)
		angle := math.Atan2(tan.Y, tan.X)

		if err := compositeLetter(dst, face, r, lw, tileH, pt, angle, opts.Color); err != nil {
			return nil, err
		}
		drawn++

		pos += lw
		if i+1 < len(runes) && runes[i+1] != ' ' {
			pos += opts.LetterSpacing
		}
	}

	logger().Info("text on path rendered",
		slog.Int("letters", drawn),
		slog.Float64("path_length", total))

	return dst, nil
}

// compositeLetter draws one letter into a tile and composites it onto dst
// rotated by angle, centered at pt.
func compositeLetter(dst *image.RGBA, face *font.Face, r rune, width float64, tileH int, pt svgpath.Point, angle float64, col raster.RGBA) error {
	tileW := int(math.Ceil(width))
	if tileW < 1 {
		tileW = 1
	}
	tile := image.NewRGBA(image.Rect(0, 0, tileW, tileH))
	if err := font.Draw(tile, string(r), face, 0, face.Metrics().Ascent, col.Color()); err != nil {
		return err
	}

	// Map tile center to pt, rotated to the tangent.
	m := raster.Translate(pt.X, pt.Y).
		Multiply(raster.Rotate(angle)).
		Multiply(raster.Translate(-float64(tileW)/2, -float64(tileH)/2))

	xdraw.BiLinear.Transform(dst, m.Aff3(), tile, tile.Bounds(), xdraw.Over, nil)
	return nil
}
