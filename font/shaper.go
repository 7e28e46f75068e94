package font

import (
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"
)

// shaperPool pools HarfbuzzShaper instances. HarfbuzzShaper keeps an
// internal buffer and is NOT safe for concurrent use, so each shaping call
// checks one out.
var shaperPool = sync.Pool{
	New: func() any {
		return &shaping.HarfbuzzShaper{}
	},
}

// shapeAdvance shapes text at the given size and returns the total
// horizontal advance in pixels.
//
// A fresh go-text font.Face is created per call: gtfont.Face is not safe
// for concurrent use, but wraps the thread-safe *Font cached on the Source
// and is cheap to construct.
func shapeAdvance(src *Source, size float64, text string) (float64, error) {
	shaped, err := src.shapingFont()
	if err != nil {
		return 0, err
	}

	runes := []rune(text)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: detectDirection(text),
		Face:      gtfont.NewFace(shaped),
		Size:      fixed.Int26_6(size * 64),
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	}

	hb := shaperPool.Get().(*shaping.HarfbuzzShaper)
	out := hb.Shape(input)
	shaperPool.Put(hb)

	return fixedTo(out.Advance), nil
}

// detectDirection resolves the paragraph direction of text with the
// Unicode bidi algorithm. Any right-to-left run makes the whole run RTL;
// the layout engine only ever shapes single words, so mixed-direction
// words are not a practical concern.
func detectDirection(text string) di.Direction {
	var p bidi.Paragraph
	if _, err := p.SetString(text); err != nil {
		return di.DirectionLTR
	}
	order, err := p.Order()
	if err != nil {
		return di.DirectionLTR
	}
	for i := 0; i < order.NumRuns(); i++ {
		run := order.Run(i)
		if run.Direction() == bidi.RightToLeft {
			return di.DirectionRTL
		}
	}
	return di.DirectionLTR
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}
