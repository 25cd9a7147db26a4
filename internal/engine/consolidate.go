package engine

import (
	"math"
	"sort"

	"github.com/blocklens/blocklens/internal/geometry"
	"github.com/blocklens/blocklens/internal/region"
)

// Consolidate groups a single provider's regions under the chosen
// strategy and classifies each member of a multi-region group as
// redundant (its area is fully covered by its peers) or unique-extra
// (it contributes area its peers do not). Singleton groups are
// neither.
func Consolidate(page int, source string, regions []region.Region, strategy region.Strategy, p Params) (*region.ConsolidationResult, error) {
	if err := ValidateStrategy(strategy); err != nil {
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
	sort.Slice(live, func(i, j int) bool { return live[i].ID < live[j].ID })

	result := &region.ConsolidationResult{
		Source:   source,
		Strategy: strategy,
	}
	if len(live) == 0 {
		return result, nil
	}

	uf := newUnionFind(len(live))
	for i := 0; i < len(live); i++ {
		for j := i + 1; j < len(live); j++ {
			if grouped(live[i].BBox, live[j].BBox, strategy, p) {
				uf.union(i, j)
			}
		}
	}

	annotated := make([]region.AnnotatedRegion, len(live))
	for i, r := range live {
		annotated[i] = region.AnnotatedRegion{Region: r}
	}

	var layout []region.LayoutGroup
	for _, members := range uf.groups() {
		boxes := make([]geometry.Rect, len(members))
		ids := make([]string, len(members))
		for k, idx := range members {
			boxes[k] = live[idx].BBox
			ids[k] = live[idx].ID
		}
		layout = append(layout, region.LayoutGroup{
			ID:   GroupID(page, string(strategy), ids),
			Type: string(strategy),
			BBox: geometry.UnionAll(boxes),
		})

		if len(members) < 2 {
			continue
		}
		for k, idx := range members {
			peers := make([]geometry.Rect, 0, len(members)-1)
			for k2, idx2 := range members {
				if k2 != k {
					peers = append(peers, live[idx2].BBox)
				}
			}
			if coveredByPeers(live[idx].BBox, peers, p.RedundantAreaTolerance) {
				annotated[idx].Redundant = true
			} else {
				annotated[idx].UniqueExtra = true
			}
		}
	}

	sort.SliceStable(layout, func(i, j int) bool {
		if layout[i].BBox.Y != layout[j].BBox.Y {
			return layout[i].BBox.Y < layout[j].BBox.Y
		}
		return layout[i].BBox.X < layout[j].BBox.X
	})

	result.Boxes = annotated
	result.LayoutGroups = layout
	return result, nil
}

// grouped implements the pairwise rule for one strategy.
func grouped(a, b geometry.Rect, strategy region.Strategy, p Params) bool {
	switch strategy {
	case region.StrategyOverlap:
		return geometry.IntersectionArea(a, b) > 0
	case region.StrategyVerticalCenters:
		return math.Abs(a.CenterX()-b.CenterX()) <= p.CenterTolerance
	case region.StrategyParagraph:
		return paragraphAdjacent(a, b, p)
	}
	return false
}

// coveredByPeers reports whether r's area is covered by the union of
// its peers, within a relative tolerance. The union-intersection area
// is computed exactly on a compressed coordinate grid; peer counts
// per group are small, so the quadratic cell sweep is cheap.
func coveredByPeers(r geometry.Rect, peers []geometry.Rect, tolerance float64) bool {
	own := r.Area()
	if own <= 0 {
		return false
	}

	clipped := make([]geometry.Rect, 0, len(peers))
	for _, p := range peers {
		c := geometry.Intersect(r, p)
		if c.Valid() {
			clipped = append(clipped, c)
		}
	}
	if len(clipped) == 0 {
		return false
	}

	xs := []float64{r.Left(), r.Right()}
	ys := []float64{r.Top(), r.Bottom()}
	for _, c := range clipped {
		xs = append(xs, c.Left(), c.Right())
		ys = append(ys, c.Top(), c.Bottom())
	}
	xs = sortedUnique(xs)
	ys = sortedUnique(ys)

	covered := 0.0
	for i := 0; i+1 < len(xs); i++ {
		for j := 0; j+1 < len(ys); j++ {
			cx := (xs[i] + xs[i+1]) / 2
			cy := (ys[j] + ys[j+1]) / 2
			for _, c := range clipped {
				if c.Contains(cx, cy) {
					covered += (xs[i+1] - xs[i]) * (ys[j+1] - ys[j])
					break
				}
			}
		}
	}

	return covered >= own*(1-tolerance)
}

func sortedUnique(vals []float64) []float64 {
	sort.Float64s(vals)
	out := vals[:0]
	for i, v := range vals {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
