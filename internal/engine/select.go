package engine

import (
	"github.com/blocklens/blocklens/internal/geometry"
	"github.com/blocklens/blocklens/internal/region"
)

// selectionPointThreshold is the area below which a query rectangle is
// treated as a click rather than a marquee selection.
const selectionPointThreshold = 1e-6

// Select returns the regions hit by a query rectangle. A near-zero
// area query (a UI click) degrades to a point-containment test at the
// rectangle's center instead of an area intersection.
func Select(regions []region.Region, query geometry.Rect) []region.Region {
	var out []region.Region

	if query.Area() < selectionPointThreshold {
		x, y := query.CenterX(), query.CenterY()
		for _, r := range regions {
			if r.Degenerate() {
				continue
			}
			if r.BBox.Contains(x, y) {
				out = append(out, r)
			}
		}
		return out
	}

	for _, r := range regions {
		if r.Degenerate() {
			continue
		}
		if geometry.IntersectionArea(query, r.BBox) > 0 {
			out = append(out, r)
		}
	}
	return out
}
