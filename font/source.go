// Package font loads TrueType/OpenType fonts and measures and draws text
// with them. A Source is the heavyweight parsed font; Faces are cheap
// size-bound views created from it. Advance widths come from HarfBuzz
// shaping (go-text/typesetting), so kerning and ligatures are reflected in
// the measurements; rasterization uses golang.org/x/image.
package font

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	gtfont "github.com/go-text/typesetting/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Source represents a loaded font file. One Source can create multiple
// Face instances at different sizes, which is exactly what the fitting
// search does while it probes candidate sizes.
//
// Source is safe for concurrent use.
type Source struct {
	data []byte
	ot   *opentype.Font
	name string

	// The go-text representation is parsed lazily: it is only needed once
	// text is actually shaped, and parsing is not free.
	shapeOnce sync.Once
	shaped    *gtfont.Font
	shapeErr  error
}

// NewSource parses font data (TTF or OTF). The data slice is copied
// internally and can be reused after this call.
func NewSource(data []byte) (*Source, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFontData
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	f, err := opentype.Parse(dataCopy)
	if err != nil {
		return nil, fmt.Errorf("font: parse: %w", err)
	}

	s := &Source{data: dataCopy, ot: f}
	if name, err := f.Name(nil, sfnt.NameIDFamily); err == nil {
		s.name = name
	}
	return s, nil
}

// NewSourceFromFile loads a Source from a font file path.
func NewSourceFromFile(path string) (*Source, error) {
	// #nosec G304 -- font paths come from the operator's font directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("font: read file: %w", err)
	}
	return NewSource(data)
}

// Name returns the font family name, or "" when the font does not carry
// one.
func (s *Source) Name() string { return s.name }

// Face creates a Face at the specified size in points (1pt = 1px at the
// fixed 72 DPI used throughout).
// Panics if s is nil, which usually means an ignored NewSource error.
func (s *Source) Face(size float64) *Face {
	if s == nil {
		panic("font: Face called on nil Source")
	}
	return newFace(s, size)
}

// shapingFont returns the go-text font used for HarfBuzz shaping,
// parsing it on first use. The returned *gtfont.Font is read-only and safe
// for concurrent use.
func (s *Source) shapingFont() (*gtfont.Font, error) {
	s.shapeOnce.Do(func() {
		face, err := gtfont.ParseTTF(bytes.NewReader(s.data))
		if err != nil {
			s.shapeErr = fmt.Errorf("font: parse for shaping: %w", err)
			return
		}
		s.shaped = face.Font
	})
	return s.shaped, s.shapeErr
}
