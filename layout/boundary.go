// Package layout fits text into the opaque region of a shape. It scans the
// shape for horizontal slots (boundaries), distributes words over them with
// flexible inter-word spacing, and binary-searches the font size until the
// text exactly fills every slot.
package layout

// Shape exposes the alpha coverage of a shape image. Implemented by
// raster.Pixmap; tests use synthetic masks.
type Shape interface {
	Size() (width, height int)
	Opaque(x, y int) bool
}

// Boundary is a horizontal run of opaque pixels: the slot one text line is
// laid into. StartX and EndX are inclusive pixel columns.
type Boundary struct {
	StartX int
	EndX   int
	Y      int
}

// Length returns the width of the boundary in pixels.
func (b Boundary) Length() float64 {
	return float64(b.EndX - b.StartX)
}

// ScanBoundaries finds the boundaries of shape, scanning one row every
// spacing pixels. Rows are scanned left to right; each maximal run of
// opaque pixels becomes one Boundary.
func ScanBoundaries(shape Shape, spacing int) []Boundary {
	if spacing < 1 {
		spacing = 1
	}
	width, height := shape.Size()

	var boundaries []Boundary
	for y := spacing; y < height; y += spacing {
		x := 0
		for {
			start := findEdge(shape, x, y, spacing, true)
			if start >= width {
				break
			}
			end := findEdge(shape, start+1, y, spacing, false)
			boundaries = append(boundaries, Boundary{StartX: start, EndX: end - 1, Y: y})
			x = end
		}
	}
	return boundaries
}

// findEdge scans row y from column x for the next pixel whose opacity
// matches wantOpaque. It jumps ahead in steps of step and, when it lands
// inside a run, backtracks at most step-1 pixels to the run's left edge.
// Returns the shape width when no such pixel exists.
func findEdge(shape Shape, x, y, step int, wantOpaque bool) int {
	width, _ := shape.Size()
	target := func(x int) bool { return shape.Opaque(x, y) == wantOpaque }

	for x < width {
		if target(x) {
			lo := x - step + 1
			if lo < 0 {
				lo = 0
			}
			for x > lo && target(x-1) {
				x--
			}
			return x
		}
		x += step
	}
	return width
}
