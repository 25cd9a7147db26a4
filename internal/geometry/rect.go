// Package geometry provides axis-aligned rectangle primitives for
// page-relative coordinates. All rectangles live in the unit square:
// x, y, w, h in [0,1] with the origin at the top-left of the page.
package geometry

import "math"

// Epsilon is the tolerance used for rounding slack in coordinate
// invariants and area comparisons.
const Epsilon = 1e-6

// Rect is an axis-aligned rectangle in page-relative coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// NewRect creates a rectangle from its top-left corner and dimensions.
func NewRect(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// FromCorners creates a rectangle from two opposite corner points.
func FromCorners(x0, y0, x1, y1 float64) Rect {
	return Rect{
		X: math.Min(x0, x1),
		Y: math.Min(y0, y1),
		W: math.Abs(x1 - x0),
		H: math.Abs(y1 - y0),
	}
}

// Left returns the left edge X coordinate.
func (r Rect) Left() float64 { return r.X }

// Right returns the right edge X coordinate.
func (r Rect) Right() float64 { return r.X + r.W }

// Top returns the top edge Y coordinate.
func (r Rect) Top() float64 { return r.Y }

// Bottom returns the bottom edge Y coordinate.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// CenterX returns the horizontal center coordinate.
func (r Rect) CenterX() float64 { return r.X + r.W/2 }

// CenterY returns the vertical center coordinate.
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

// Area returns the rectangle's area, or 0 for degenerate rectangles.
func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Valid reports whether the rectangle has positive width and height.
// Degenerate rectangles are excluded from all geometric operations.
func (r Rect) Valid() bool {
	return r.W > 0 && r.H > 0
}

// Contains reports whether the point (x, y) lies inside the rectangle,
// edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left() && x <= r.Right() && y >= r.Top() && y <= r.Bottom()
}

// Intersects reports whether two rectangles share any area.
func (r Rect) Intersects(other Rect) bool {
	return Intersect(r, other).Area() > 0
}

// Intersect returns the intersection of two rectangles. If they do not
// overlap the result is degenerate (zero or negative dimensions) and
// its Area is 0.
func Intersect(a, b Rect) Rect {
	x0 := math.Max(a.Left(), b.Left())
	y0 := math.Max(a.Top(), b.Top())
	x1 := math.Min(a.Right(), b.Right())
	y1 := math.Min(a.Bottom(), b.Bottom())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// IntersectionArea returns the overlap area of two rectangles.
func IntersectionArea(a, b Rect) float64 {
	ix := Intersect(a, b)
	return math.Max(0, ix.W) * math.Max(0, ix.H)
}

// Union returns the minimal rectangle covering both inputs.
func Union(a, b Rect) Rect {
	x0 := math.Min(a.Left(), b.Left())
	y0 := math.Min(a.Top(), b.Top())
	x1 := math.Max(a.Right(), b.Right())
	y1 := math.Max(a.Bottom(), b.Bottom())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// UnionAll returns the minimal rectangle covering all inputs.
// Returns a zero Rect for an empty slice.
func UnionAll(rects []Rect) Rect {
	if len(rects) == 0 {
		return Rect{}
	}
	u := rects[0]
	for _, r := range rects[1:] {
		u = Union(u, r)
	}
	return u
}

// IoU returns the intersection-over-union of two rectangles:
// inter / (areaA + areaB - inter). Defined as 0 when the denominator
// is 0, so degenerate rectangles never match anything.
func IoU(a, b Rect) float64 {
	inter := IntersectionArea(a, b)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// HorizontalOverlap returns the length of the overlap of the two
// rectangles' horizontal ranges, 0 or negative when disjoint.
func HorizontalOverlap(a, b Rect) float64 {
	return math.Min(a.Right(), b.Right()) - math.Max(a.Left(), b.Left())
}

// VerticalOverlap returns the length of the overlap of the two
// rectangles' vertical ranges, 0 or negative when disjoint.
func VerticalOverlap(a, b Rect) float64 {
	return math.Min(a.Bottom(), b.Bottom()) - math.Max(a.Top(), b.Top())
}

// VerticalGap returns the vertical distance between two rectangles'
// ranges, 0 when they overlap vertically.
func VerticalGap(a, b Rect) float64 {
	return math.Max(0, -VerticalOverlap(a, b))
}

// HorizontalGap returns the horizontal distance between two
// rectangles' ranges, 0 when they overlap horizontally.
func HorizontalGap(a, b Rect) float64 {
	return math.Max(0, -HorizontalOverlap(a, b))
}
