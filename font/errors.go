package font

import "errors"

// Sentinel errors for the font package.
var (
	// ErrEmptyFontData is returned when font data is empty.
	ErrEmptyFontData = errors.New("font: empty font data")

	// ErrInvalidSize is returned for non-positive face sizes.
	ErrInvalidSize = errors.New("font: face size must be positive")
)
