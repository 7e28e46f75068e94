package font

import (
	"sync"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/shapefill/shapefill/cache"
)

// Metrics holds font metrics at a specific face size. Distances are in
// pixels; Descent is stored positive (absolute depth below the baseline).
type Metrics struct {
	Ascent    float64
	Descent   float64
	LineGap   float64
	XHeight   float64
	CapHeight float64
}

// LineHeight returns the recommended vertical distance between baselines.
func (m Metrics) LineHeight() float64 {
	return m.Ascent + m.Descent + m.LineGap
}

// Face is a Source bound to a size. It memoizes advance widths, which the
// fitting search queries for the same words over and over.
//
// Face is safe for concurrent use.
type Face struct {
	source *Source
	size   float64

	metricsOnce sync.Once
	metrics     Metrics

	advances *cache.Sharded[string, float64]
}

func newFace(s *Source, size float64) *Face {
	return &Face{
		source:   s,
		size:     size,
		advances: cache.New[string, float64](0, cache.StringHasher),
	}
}

// Size returns the face size in points.
func (f *Face) Size() float64 { return f.size }

// Source returns the Source this face was created from.
func (f *Face) Source() *Source { return f.source }

// Metrics returns the font metrics at this face's size.
func (f *Face) Metrics() Metrics {
	f.metricsOnce.Do(func() {
		var buf sfnt.Buffer
		m, err := f.source.ot.Metrics(&buf, fixedFrom(f.size), xfont.HintingFull)
		if err != nil {
			return
		}
		ascent := fixedTo(m.Ascent)
		descent := fixedTo(m.Descent)
		f.metrics = Metrics{
			Ascent:    ascent,
			Descent:   descent,
			LineGap:   fixedTo(m.Height) - ascent - descent,
			XHeight:   fixedTo(m.XHeight),
			CapHeight: fixedTo(m.CapHeight),
		}
	})
	return f.metrics
}

// Advance returns the total advance width of text in pixels, shaped with
// HarfBuzz so kerning and ligatures are included. Results are memoized per
// face.
func (f *Face) Advance(text string) float64 {
	if text == "" {
		return 0
	}
	return f.advances.GetOrCreate(text, func() float64 {
		if adv, err := shapeAdvance(f.source, f.size, text); err == nil {
			return adv
		}
		return f.glyphAdvance(text)
	})
}

// glyphAdvance sums per-glyph advances without shaping. Fallback path for
// fonts go-text cannot parse.
func (f *Face) glyphAdvance(text string) float64 {
	var buf sfnt.Buffer
	total := 0.0
	for _, r := range text {
		gid, err := f.source.ot.GlyphIndex(&buf, r)
		if err != nil {
			continue
		}
		adv, err := f.source.ot.GlyphAdvance(&buf, gid, fixedFrom(f.size), xfont.HintingFull)
		if err != nil {
			continue
		}
		total += fixedTo(adv)
	}
	return total
}

// HasGlyph reports whether the font has a glyph for the given rune.
func (f *Face) HasGlyph(r rune) bool {
	var buf sfnt.Buffer
	gid, err := f.source.ot.GlyphIndex(&buf, r)
	return err == nil && gid != 0
}

func fixedFrom(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

func fixedTo(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}
