// Package svgpath parses SVG path data and flattens it into polylines for
// arc-length queries. Only the command subset needed for text-on-path
// rendering is supported: M/m, L/l, H/h, V/v, C/c, Q/q, Z/z.
package svgpath

// Point is a 2D point.
type Point struct {
	X, Y float64
}

// Lerp linearly interpolates between p and q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{
		X: p.X + (q.X-p.X)*t,
		Y: p.Y + (q.Y-p.Y)*t,
	}
}

// Element is one path command with absolute coordinates.
type Element interface {
	isElement()
}

// MoveTo starts a new subpath at Point.
type MoveTo struct {
	Point Point
}

func (MoveTo) isElement() {}

// LineTo draws a straight segment to Point.
type LineTo struct {
	Point Point
}

func (LineTo) isElement() {}

// QuadTo draws a quadratic Bezier curve.
type QuadTo struct {
	Control Point
	Point   Point
}

func (QuadTo) isElement() {}

// CubicTo draws a cubic Bezier curve.
type CubicTo struct {
	Control1 Point
	Control2 Point
	Point    Point
}

func (CubicTo) isElement() {}

// Close closes the current subpath.
type Close struct{}

func (Close) isElement() {}

// Path is a sequence of parsed path elements.
type Path struct {
	elements []Element
}

// Elements returns the parsed elements.
func (p *Path) Elements() []Element {
	return p.elements
}
