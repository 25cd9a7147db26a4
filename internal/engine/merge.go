package engine

import (
	"math"
	"sort"

	"github.com/blocklens/blocklens/internal/geometry"
	"github.com/blocklens/blocklens/internal/region"
)

// Merge combines regions into larger logical groups under a spatial
// policy. Grouping is transitive: any chain of pairwise-mergeable
// regions collapses into one group. Group ids are content hashes of
// (page, mode, sorted member ids) so re-running on identical input
// yields identical groups regardless of input order.
func Merge(page int, regions []region.Region, mode region.MergeMode, p Params) ([]region.MergeGroup, error) {
	if err := ValidateMergeMode(mode); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	live := make([]region.Region, 0, len(regions))
	for _, r := range regions {
		if !r.Degenerate() {
			live = append(live, r)
		}
	}
	if len(live) == 0 {
		return nil, nil
	}

	// Sort candidates by id so union-find component structure never
	// depends on caller ordering.
	sort.Slice(live, func(i, j int) bool { return live[i].ID < live[j].ID })

	uf := newUnionFind(len(live))
	for i := 0; i < len(live); i++ {
		for j := i + 1; j < len(live); j++ {
			if mergeable(live[i].BBox, live[j].BBox, mode, p) {
				uf.union(i, j)
			}
		}
	}

	groups := make([]region.MergeGroup, 0)
	for _, members := range uf.groups() {
		boxes := make([]geometry.Rect, len(members))
		ids := make([]string, len(members))
		for k, idx := range members {
			boxes[k] = live[idx].BBox
			ids[k] = live[idx].ID
		}

		// Member order: top-to-bottom for vertical/paragraph
		// stacking, left-to-right for rows.
		sort.SliceStable(members, func(a, b int) bool {
			ra, rb := live[members[a]], live[members[b]]
			if mode == region.MergeHorizontal {
				if ra.BBox.X != rb.BBox.X {
					return ra.BBox.X < rb.BBox.X
				}
				return ra.BBox.Y < rb.BBox.Y
			}
			if ra.BBox.Y != rb.BBox.Y {
				return ra.BBox.Y < rb.BBox.Y
			}
			return ra.BBox.X < rb.BBox.X
		})
		ordered := make([]string, len(members))
		for k, idx := range members {
			ordered[k] = live[idx].ID
		}

		groups = append(groups, region.MergeGroup{
			ID:      GroupID(page, string(mode), ids),
			Source:  "merged",
			Mode:    mode,
			Page:    page,
			BBox:    geometry.UnionAll(boxes),
			Members: ordered,
		})
	}

	// Reading order: top-to-bottom, then left-to-right.
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].BBox.Y != groups[j].BBox.Y {
			return groups[i].BBox.Y < groups[j].BBox.Y
		}
		return groups[i].BBox.X < groups[j].BBox.X
	})
	return groups, nil
}

// mergeable implements the pairwise rule for one mode.
func mergeable(a, b geometry.Rect, mode region.MergeMode, p Params) bool {
	switch mode {
	case region.MergeVertical:
		return stackedVertically(a, b, p)
	case region.MergeHorizontal:
		return stackedHorizontally(a, b, p)
	case region.MergeParagraph:
		return paragraphAdjacent(a, b, p)
	}
	return false
}

// stackedVertically: horizontal ranges overlap above the configured
// minimum fraction of the narrower region, and the vertical gap stays
// below GapRatio times the smaller region's height.
func stackedVertically(a, b geometry.Rect, p Params) bool {
	overlap := geometry.HorizontalOverlap(a, b)
	minW := math.Min(a.W, b.W)
	if p.MinRangeOverlap > 0 {
		if overlap < p.MinRangeOverlap*minW {
			return false
		}
	} else if overlap <= 0 {
		return false
	}
	return geometry.VerticalGap(a, b) <= p.GapRatio*math.Min(a.H, b.H)+geometry.Epsilon
}

// stackedHorizontally is the symmetric row rule.
func stackedHorizontally(a, b geometry.Rect, p Params) bool {
	overlap := geometry.VerticalOverlap(a, b)
	minH := math.Min(a.H, b.H)
	if p.MinRangeOverlap > 0 {
		if overlap < p.MinRangeOverlap*minH {
			return false
		}
	} else if overlap <= 0 {
		return false
	}
	return geometry.HorizontalGap(a, b) <= p.GapRatio*math.Min(a.W, b.W)+geometry.Epsilon
}

// paragraphAdjacent: vertically adjacent as in vertical mode, AND
// horizontally aligned within tolerance of either's left edge or
// center. Accepts imperfect alignment better than pure vertical
// stacking; intended for prose.
func paragraphAdjacent(a, b geometry.Rect, p Params) bool {
	if !stackedVertically(a, b, p) {
		return false
	}
	leftAligned := math.Abs(a.Left()-b.Left()) <= p.AlignTolerance
	centerAligned := math.Abs(a.CenterX()-b.CenterX()) <= p.AlignTolerance
	return leftAligned || centerAligned
}
