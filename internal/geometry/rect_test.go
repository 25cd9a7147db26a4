package geometry

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		area float64
	}{
		{
			name: "identical",
			a:    NewRect(0.1, 0.1, 0.2, 0.2),
			b:    NewRect(0.1, 0.1, 0.2, 0.2),
			area: 0.04,
		},
		{
			name: "half overlap",
			a:    NewRect(0, 0, 0.2, 0.2),
			b:    NewRect(0.1, 0, 0.2, 0.2),
			area: 0.02,
		},
		{
			name: "disjoint",
			a:    NewRect(0, 0, 0.1, 0.1),
			b:    NewRect(0.5, 0.5, 0.1, 0.1),
			area: 0,
		},
		{
			name: "touching edges",
			a:    NewRect(0, 0, 0.1, 0.1),
			b:    NewRect(0.1, 0, 0.1, 0.1),
			area: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntersectionArea(tt.a, tt.b)
			if !almostEqual(got, tt.area) {
				t.Errorf("IntersectionArea = %v, want %v", got, tt.area)
			}
		})
	}
}

func TestIoU_SelfIsOne(t *testing.T) {
	rects := []Rect{
		NewRect(0.1, 0.1, 0.2, 0.05),
		NewRect(0, 0, 1, 1),
		NewRect(0.5, 0.5, 0.001, 0.001),
	}
	for _, r := range rects {
		if got := IoU(r, r); !almostEqual(got, 1) {
			t.Errorf("IoU(r, r) = %v for %+v, want 1", got, r)
		}
	}
}

func TestIoU_Symmetric(t *testing.T) {
	a := NewRect(0.1, 0.1, 0.3, 0.2)
	b := NewRect(0.2, 0.15, 0.3, 0.2)
	if IoU(a, b) != IoU(b, a) {
		t.Errorf("IoU not symmetric: %v vs %v", IoU(a, b), IoU(b, a))
	}
}

func TestIoU_Degenerate(t *testing.T) {
	zero := NewRect(0.5, 0.5, 0, 0)
	if got := IoU(zero, zero); got != 0 {
		t.Errorf("IoU of degenerate rects = %v, want 0", got)
	}
	if got := IoU(zero, NewRect(0, 0, 1, 1)); got != 0 {
		t.Errorf("IoU degenerate vs full page = %v, want 0", got)
	}
}

func TestIoU_Values(t *testing.T) {
	// Two unit-half rects overlapping in half their area:
	// inter = 0.01, union = 0.02 + 0.02 - 0.01 = 0.03
	a := NewRect(0, 0, 0.2, 0.1)
	b := NewRect(0.1, 0, 0.2, 0.1)
	want := 0.01 / 0.03
	if got := IoU(a, b); !almostEqual(got, want) {
		t.Errorf("IoU = %v, want %v", got, want)
	}
}

func TestUnion(t *testing.T) {
	a := NewRect(0.5, 0.5, 0.1, 0.02)
	b := NewRect(0.5, 0.53, 0.1, 0.02)
	u := Union(a, b)
	want := NewRect(0.5, 0.5, 0.1, 0.05)
	if !almostEqual(u.X, want.X) || !almostEqual(u.Y, want.Y) ||
		!almostEqual(u.W, want.W) || !almostEqual(u.H, want.H) {
		t.Errorf("Union = %+v, want %+v", u, want)
	}
}

func TestUnionAll(t *testing.T) {
	if got := UnionAll(nil); got != (Rect{}) {
		t.Errorf("UnionAll(nil) = %+v, want zero rect", got)
	}
	rects := []Rect{
		NewRect(0.1, 0.1, 0.1, 0.1),
		NewRect(0.3, 0.3, 0.1, 0.1),
		NewRect(0.05, 0.2, 0.1, 0.1),
	}
	u := UnionAll(rects)
	if !almostEqual(u.Left(), 0.05) || !almostEqual(u.Top(), 0.1) ||
		!almostEqual(u.Right(), 0.4) || !almostEqual(u.Bottom(), 0.4) {
		t.Errorf("UnionAll = %+v", u)
	}
}

func TestContains(t *testing.T) {
	r := NewRect(0.2, 0.2, 0.4, 0.2)
	if !r.Contains(0.4, 0.3) {
		t.Error("center point should be contained")
	}
	if !r.Contains(0.2, 0.2) {
		t.Error("corner point should be contained")
	}
	if r.Contains(0.1, 0.3) {
		t.Error("point left of rect should not be contained")
	}
}

func TestValid(t *testing.T) {
	if !NewRect(0, 0, 0.1, 0.1).Valid() {
		t.Error("positive rect should be valid")
	}
	if NewRect(0, 0, 0, 0.1).Valid() {
		t.Error("zero-width rect should be invalid")
	}
	if NewRect(0, 0, 0.1, -0.1).Valid() {
		t.Error("negative-height rect should be invalid")
	}
}

func TestGaps(t *testing.T) {
	a := NewRect(0.5, 0.5, 0.1, 0.02)
	b := NewRect(0.5, 0.53, 0.1, 0.02)

	if gap := VerticalGap(a, b); !almostEqual(gap, 0.01) {
		t.Errorf("VerticalGap = %v, want 0.01", gap)
	}
	if ov := HorizontalOverlap(a, b); !almostEqual(ov, 0.1) {
		t.Errorf("HorizontalOverlap = %v, want 0.1", ov)
	}
	// Overlapping vertically: gap is 0.
	if gap := VerticalGap(a, a); gap != 0 {
		t.Errorf("VerticalGap of self = %v, want 0", gap)
	}
}
