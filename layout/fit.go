package layout

import (
	"errors"
	"strings"
)

// Sentinel errors for the layout package.
var (
	// ErrNoWords is returned when the text contains no words.
	ErrNoWords = errors.New("layout: text contains no words")

	// ErrUnfit is returned when no font size places every word while
	// filling every boundary (degenerate shapes, empty opaque regions, or
	// single words wider than any slot).
	ErrUnfit = errors.New("layout: text cannot fit the shape")
)

// FaceSource supplies Measurers at arbitrary sizes during the fitting
// search. Satisfied by wrapping *font.Source.
type FaceSource interface {
	FaceAt(size float64) Measurer
}

// Options configures the fitting search. The zero value selects defaults
// matched to the shape.
type Options struct {
	// MinSize is the lower bound of the font size search. Default 1.
	MinSize float64

	// MaxSize is the initial upper bound. Default shapeWidth/10. The
	// search grows the bound when even it is too small for the shape.
	MaxSize float64

	// Tolerance stops the search when the size bracket is this narrow.
	// Default 0.5.
	Tolerance float64

	// SpacingFactors are the minimum word spacings tried at each size,
	// as fractions of the font size. Default {0.2 ... 0.8}.
	SpacingFactors []float64

	// Trace, when set, is invoked once per search iteration with the
	// candidate size and the current bracket.
	Trace func(size, lower, upper float64)
}

// Result is a successful fit: the chosen font size and the justified
// lines, one per boundary (some possibly empty for slots too narrow to
// hold a word).
type Result struct {
	Size       float64
	MinSpacing float64
	Lines      []*Line
	Boundaries []Boundary
}

// WordCount returns the number of words placed across all lines.
func (r *Result) WordCount() int {
	n := 0
	for _, l := range r.Lines {
		n += len(l.Words)
	}
	return n
}

var defaultSpacingFactors = []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}

// Fit finds the largest font size at which text exactly fills the opaque
// region of shape: every boundary receives a line and every word is
// placed. It binary-searches the size, trying each spacing factor at each
// candidate, growing the upper bound when the whole bracket is too small.
func Fit(shape Shape, text string, faces FaceSource, opts Options) (*Result, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, ErrNoWords
	}

	width, _ := shape.Size()
	lower := opts.MinSize
	if lower <= 0 {
		lower = 1
	}
	upper := opts.MaxSize
	if upper <= lower {
		upper = float64(width) / 10
	}
	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = 0.5
	}
	factors := opts.SpacingFactors
	if len(factors) == 0 {
		factors = defaultSpacingFactors
	}

	size := upper
	for upper-lower > tolerance {
		if opts.Trace != nil {
			opts.Trace(size, lower, upper)
		}

		face := faces.FaceAt(size)
		boundaries := ScanBoundaries(shape, int(size))

		var (
			lines      []*Line
			placed     int
			minSpacing float64
		)
		for _, factor := range factors {
			minSpacing = factor * size
			lines, placed = buildLines(words, boundaries, face, minSpacing)
			if placed == len(words) && len(lines) == len(boundaries) {
				break
			}
		}

		switch {
		case len(lines) < len(boundaries):
			// Font too small: the words ran out before the slots did.
			if size >= upper {
				upper += (upper - lower) * 2
				size = upper
				continue
			}
			lower = size
		case placed < len(words):
			// Font too big: words left over after the last slot.
			upper = size
		default:
			return &Result{
				Size:       size,
				MinSpacing: minSpacing,
				Lines:      lines,
				Boundaries: boundaries,
			}, nil
		}

		size = (upper + lower) / 2
	}

	return nil, ErrUnfit
}

// buildLines distributes words over boundaries in order. Words are
// appended to a boundary's line while they fit within its length, allowing
// an overflow of up to a quarter of the minimum spacing; each closed line
// is justified to its boundary. Returns the lines built (at most one per
// boundary, in order) and how many words were placed.
func buildLines(words []string, boundaries []Boundary, face Measurer, minSpacing float64) ([]*Line, int) {
	lines := make([]*Line, 0, len(boundaries))
	next := 0

	for _, b := range boundaries {
		if next >= len(words) {
			break
		}
		line := NewLine(b, minSpacing)

		for next < len(words) {
			word := words[next]
			wordWidth := face.Advance(word)
			candidate := line.Width() + wordWidth + minSpacing

			if candidate < b.Length() || candidate-b.Length() < minSpacing*0.25 {
				line.Append(word, wordWidth)
				next++
				continue
			}

			// Word goes to the next boundary; close this line, even when
			// it is empty (slots too narrow for any word stay blank).
			break
		}

		line.Justify(b.Length())
		lines = append(lines, line)
	}

	return lines, next
}
