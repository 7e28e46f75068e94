package svgpath

import (
	"math"
	"sort"
)

// Polyline is a flattened path with precomputed cumulative arc lengths.
type Polyline struct {
	points []Point
	cum    []float64 // cum[i] is the arc length up to points[i]
}

// Flatten converts the path into a polyline. Curves are subdivided until
// their control points deviate from the chord by at most tolerance pixels.
// A mid-path moveto starts a new subpath; the jump between subpaths
// contributes no arc length.
func (p *Path) Flatten(tolerance float64) *Polyline {
	if tolerance <= 0 {
		tolerance = 0.5
	}

	var pts []Point
	var gaps []int // indices of points that begin a new subpath
	var cur, start Point
	moved := false

	emit := func(pt Point) {
		pts = append(pts, pt)
		cur = pt
	}

	for _, el := range p.elements {
		switch e := el.(type) {
		case MoveTo:
			if len(pts) > 0 {
				gaps = append(gaps, len(pts))
			}
			emit(e.Point)
			start = e.Point
			moved = true
		case LineTo:
			if !moved {
				emit(e.Point)
				start = e.Point
				moved = true
				continue
			}
			emit(e.Point)
		case QuadTo:
			// Promote to cubic so one subdivision routine covers both.
			c1 := cur.Lerp(e.Control, 2.0/3.0)
			c2 := e.Point.Lerp(e.Control, 2.0/3.0)
			flattenCubic(cur, c1, c2, e.Point, tolerance, emit)
		case CubicTo:
			flattenCubic(cur, e.Control1, e.Control2, e.Point, tolerance, emit)
		case Close:
			emit(start)
		}
	}

	pl := &Polyline{points: pts, cum: make([]float64, len(pts))}
	g := 0
	for i := 1; i < len(pts); i++ {
		if g < len(gaps) && gaps[g] == i {
			pl.cum[i] = pl.cum[i-1]
			g++
			continue
		}
		pl.cum[i] = pl.cum[i-1] + dist(pts[i-1], pts[i])
	}
	return pl
}

// flattenCubic recursively subdivides the cubic Bezier (p0, p1, p2, p3)
// until it is flat within tolerance, emitting interior points and the end
// point (not p0).
func flattenCubic(p0, p1, p2, p3 Point, tolerance float64, emit func(Point)) {
	if cubicFlat(p0, p1, p2, p3, tolerance) {
		emit(p3)
		return
	}

	// de Casteljau split at t = 0.5
	ab := p0.Lerp(p1, 0.5)
	bc := p1.Lerp(p2, 0.5)
	cd := p2.Lerp(p3, 0.5)
	abc := ab.Lerp(bc, 0.5)
	bcd := bc.Lerp(cd, 0.5)
	mid := abc.Lerp(bcd, 0.5)

	flattenCubic(p0, ab, abc, mid, tolerance, emit)
	flattenCubic(mid, bcd, cd, p3, tolerance, emit)
}

// cubicFlat reports whether both control points lie within tolerance of
// the chord p0-p3.
func cubicFlat(p0, p1, p2, p3 Point, tolerance float64) bool {
	return distToSegment(p1, p0, p3) <= tolerance &&
		distToSegment(p2, p0, p3) <= tolerance
}

func distToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return dist(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return dist(p, Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

func dist(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Length returns the total arc length of the polyline.
func (pl *Polyline) Length() float64 {
	if len(pl.cum) == 0 {
		return 0
	}
	return pl.cum[len(pl.cum)-1]
}

// PointAtLength returns the point at arc length d from the start,
// clamping d to [0, Length].
func (pl *Polyline) PointAtLength(d float64) Point {
	n := len(pl.points)
	if n == 0 {
		return Point{}
	}
	if d <= 0 {
		return pl.points[0]
	}
	total := pl.Length()
	if d >= total {
		return pl.points[n-1]
	}

	i := sort.SearchFloat64s(pl.cum, d)
	// cum[i-1] < d <= cum[i]
	segLen := pl.cum[i] - pl.cum[i-1]
	if segLen == 0 {
		return pl.points[i]
	}
	t := (d - pl.cum[i-1]) / segLen
	return pl.points[i-1].Lerp(pl.points[i], t)
}

// TangentAtLength returns the unit-ish direction of the path at arc
// length d, sampled over a small window around d.
func (pl *Polyline) TangentAtLength(d float64) Point {
	const eps = 0.1
	a := pl.PointAtLength(d - eps)
	b := pl.PointAtLength(d + eps)
	return Point{X: b.X - a.X, Y: b.Y - a.Y}
}
