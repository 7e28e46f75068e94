package layout

import (
	"image"
	"testing"
)

// maskShape is a synthetic Shape whose opaque region is a set of
// rectangles.
type maskShape struct {
	w, h  int
	rects []image.Rectangle
}

func (m *maskShape) Size() (int, int) { return m.w, m.h }

func (m *maskShape) Opaque(x, y int) bool {
	for _, r := range m.rects {
		if (image.Point{X: x, Y: y}).In(r) {
			return true
		}
	}
	return false
}

func TestScanBoundariesSingleRun(t *testing.T) {
	shape := &maskShape{w: 100, h: 30, rects: []image.Rectangle{image.Rect(10, 0, 30, 30)}}

	got := ScanBoundaries(shape, 10)

	want := []Boundary{
		{StartX: 10, EndX: 29, Y: 10},
		{StartX: 10, EndX: 29, Y: 20},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d boundaries %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("boundary[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestScanBoundariesTwoRunsPerRow(t *testing.T) {
	// Step (7) larger than the inter-run gap exercises the backtracking
	// in findEdge.
	shape := &maskShape{w: 100, h: 20, rects: []image.Rectangle{
		image.Rect(10, 0, 30, 20),
		image.Rect(60, 0, 90, 20),
	}}

	got := ScanBoundaries(shape, 7)
	perRow := map[int][]Boundary{}
	for _, b := range got {
		perRow[b.Y] = append(perRow[b.Y], b)
	}

	for y, bs := range perRow {
		if len(bs) != 2 {
			t.Fatalf("row %d: got %d boundaries %v, want 2", y, len(bs), bs)
		}
		if bs[0].StartX != 10 || bs[0].EndX != 29 {
			t.Errorf("row %d first run = %+v, want [10,29]", y, bs[0])
		}
		if bs[1].StartX != 60 || bs[1].EndX != 89 {
			t.Errorf("row %d second run = %+v, want [60,89]", y, bs[1])
		}
	}
}

func TestScanBoundariesRunToRightEdge(t *testing.T) {
	shape := &maskShape{w: 50, h: 10, rects: []image.Rectangle{image.Rect(40, 0, 50, 10)}}

	got := ScanBoundaries(shape, 5)
	if len(got) == 0 {
		t.Fatal("expected boundaries for edge-touching run")
	}
	for _, b := range got {
		if b.EndX != 49 {
			t.Errorf("EndX = %d, want 49 (inclusive right edge)", b.EndX)
		}
	}
}

func TestScanBoundariesEmptyShape(t *testing.T) {
	shape := &maskShape{w: 40, h: 40}
	if got := ScanBoundaries(shape, 8); len(got) != 0 {
		t.Errorf("got %v, want no boundaries", got)
	}
}

func TestScanBoundariesClampsSpacing(t *testing.T) {
	shape := &maskShape{w: 10, h: 3, rects: []image.Rectangle{image.Rect(0, 0, 10, 3)}}
	// spacing 0 must not loop forever or panic
	got := ScanBoundaries(shape, 0)
	if len(got) != 2 {
		t.Errorf("got %d boundaries, want 2 (rows 1 and 2)", len(got))
	}
}

func TestBoundaryLength(t *testing.T) {
	b := Boundary{StartX: 10, EndX: 29, Y: 5}
	if b.Length() != 19 {
		t.Errorf("Length() = %v, want 19", b.Length())
	}
}
