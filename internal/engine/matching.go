package engine

import (
	"sort"

	"github.com/blocklens/blocklens/internal/geometry"
	"github.com/blocklens/blocklens/internal/region"
)

// MatchPair records one reference↔provider assignment.
type MatchPair struct {
	ReferenceID string  `json:"reference_id"`
	RegionID    string  `json:"region_id"`
	IoU         float64 `json:"iou"`
}

// matchGreedy assigns each reference region (largest first) the
// highest-IoU unassigned provider region at or above the threshold.
// Valid but not necessarily maximum matching.
func matchGreedy(refs []region.ReferenceRegion, regions []region.Region, threshold float64) []MatchPair {
	order := refsByAreaDesc(refs)
	used := make([]bool, len(regions))

	var pairs []MatchPair
	for _, ri := range order {
		best := -1
		bestIoU := 0.0
		for i, r := range regions {
			if used[i] || r.Degenerate() {
				continue
			}
			v := geometry.IoU(refs[ri].BBox, r.BBox)
			if v >= threshold && v > bestIoU {
				bestIoU = v
				best = i
			}
		}
		if best >= 0 {
			used[best] = true
			pairs = append(pairs, MatchPair{
				ReferenceID: refs[ri].ID,
				RegionID:    regions[best].ID,
				IoU:         bestIoU,
			})
		}
	}
	return pairs
}

// matchBipartite computes a maximum-cardinality matching between
// reference regions and provider regions over the IoU >= threshold
// graph, using augmenting paths (Kuhn's algorithm). Candidate edges
// are explored highest IoU first, so among equal-cardinality
// matchings the search prefers assignments with greater total IoU.
func matchBipartite(refs []region.ReferenceRegion, regions []region.Region, threshold float64) []MatchPair {
	type edge struct {
		region int
		iou    float64
	}

	adj := make([][]edge, len(refs))
	for ri, ref := range refs {
		for i, r := range regions {
			if r.Degenerate() {
				continue
			}
			if v := geometry.IoU(ref.BBox, r.BBox); v >= threshold {
				adj[ri] = append(adj[ri], edge{region: i, iou: v})
			}
		}
		sort.SliceStable(adj[ri], func(a, b int) bool {
			return adj[ri][a].iou > adj[ri][b].iou
		})
	}

	// regionMatch[i] is the reference index matched to provider
	// region i, or -1.
	regionMatch := make([]int, len(regions))
	for i := range regionMatch {
		regionMatch[i] = -1
	}
	refMatch := make([]int, len(refs))
	for i := range refMatch {
		refMatch[i] = -1
	}

	var visited []bool
	var augment func(ri int) bool
	augment = func(ri int) bool {
		for _, e := range adj[ri] {
			if visited[e.region] {
				continue
			}
			visited[e.region] = true
			if regionMatch[e.region] == -1 || augment(regionMatch[e.region]) {
				regionMatch[e.region] = ri
				refMatch[ri] = e.region
				return true
			}
		}
		return false
	}

	for _, ri := range refsByAreaDesc(refs) {
		visited = make([]bool, len(regions))
		augment(ri)
	}

	var pairs []MatchPair
	for ri, mi := range refMatch {
		if mi < 0 {
			continue
		}
		pairs = append(pairs, MatchPair{
			ReferenceID: refs[ri].ID,
			RegionID:    regions[mi].ID,
			IoU:         geometry.IoU(refs[ri].BBox, regions[mi].BBox),
		})
	}
	return pairs
}

// refsByAreaDesc returns reference indices ordered area-descending
// with the reference id as a deterministic tie-break.
func refsByAreaDesc(refs []region.ReferenceRegion) []int {
	order := make([]int, len(refs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		aa, ab := refs[order[a]].BBox.Area(), refs[order[b]].BBox.Area()
		if aa != ab {
			return aa > ab
		}
		return refs[order[a]].ID < refs[order[b]].ID
	})
	return order
}
