package engine

import (
	"sort"

	"github.com/blocklens/blocklens/internal/geometry"
	"github.com/blocklens/blocklens/internal/region"
)

// ComputeReference builds the canonical reference list for one page
// from one or more providers' normalized regions.
//
// Candidates are swept in area-descending order (ties broken by
// provider name, then original index) so the output is independent of
// which provider's regions were listed first. Each candidate either
// merges into the accepted reference region it overlaps best (IoU at
// or above the dedupe threshold) or seeds a new one. Merging never
// grows the accepted bbox: the first, larger region's bbox wins.
func ComputeReference(regions []region.Region, dedupeThreshold float64) []region.ReferenceRegion {
	candidates := make([]region.Region, 0, len(regions))
	for _, r := range regions {
		if r.Degenerate() {
			continue
		}
		candidates = append(candidates, r)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ai, aj := candidates[i].BBox.Area(), candidates[j].BBox.Area()
		if ai != aj {
			return ai > aj
		}
		if candidates[i].Source != candidates[j].Source {
			return candidates[i].Source < candidates[j].Source
		}
		return candidates[i].Order < candidates[j].Order
	})

	var refs []region.ReferenceRegion
	for _, c := range candidates {
		best := -1
		bestIoU := 0.0
		for i, ref := range refs {
			if v := geometry.IoU(c.BBox, ref.BBox); v > bestIoU {
				bestIoU = v
				best = i
			}
		}

		if best >= 0 && bestIoU >= dedupeThreshold {
			ref := &refs[best]
			if !ref.HasSource(c.Source) {
				ref.Sources = insertSorted(ref.Sources, c.Source)
			}
			if bestIoU > ref.MemberIoUs[c.Source] {
				ref.MemberIoUs[c.Source] = bestIoU
			}
			continue
		}

		refs = append(refs, region.ReferenceRegion{
			ID:         ReferenceID(c.Page, c.BBox),
			Page:       c.Page,
			BBox:       c.BBox,
			Sources:    []string{c.Source},
			MemberIoUs: map[string]float64{c.Source: 1},
		})
	}

	return refs
}

// insertSorted inserts s into a sorted slice, keeping it sorted.
func insertSorted(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}
