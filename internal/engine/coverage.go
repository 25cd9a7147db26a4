package engine

import (
	"fmt"

	"github.com/blocklens/blocklens/internal/region"
)

// CoverageResult scores one provider against a page's reference list.
// Applicable distinguishes "page has no reference data" from genuine
// zero coverage; callers should not average inapplicable pages.
type CoverageResult struct {
	Provider   string                   `json:"provider"`
	Page       int                      `json:"page"`
	Matched    int                      `json:"matched"`
	Total      int                      `json:"total"`
	Coverage   float64                  `json:"coverage"`
	Applicable bool                     `json:"applicable"`
	MatchMode  MatchMode                `json:"match_mode"`
	Pairs      []MatchPair              `json:"pairs,omitempty"`
	References []region.ReferenceRegion `json:"references"`
}

// Coverage matches a provider's regions against the reference list
// and returns the fraction of references covered. The reference list
// is passed in so the caller controls (and caches) its construction.
func Coverage(provider string, regions []region.Region, refs []region.ReferenceRegion, acceptThreshold float64, mode MatchMode) (CoverageResult, error) {
	res := CoverageResult{
		Provider:   provider,
		MatchMode:  mode,
		Total:      len(refs),
		References: refs,
	}
	if len(refs) > 0 {
		res.Page = refs[0].Page
		res.Applicable = true
	}
	if len(refs) == 0 {
		return res, nil
	}

	var pairs []MatchPair
	switch mode {
	case MatchGreedy:
		pairs = matchGreedy(refs, regions, acceptThreshold)
	case MatchBipartite:
		pairs = matchBipartite(refs, regions, acceptThreshold)
	default:
		return CoverageResult{}, fmt.Errorf("%w: unknown match_mode %q", ErrInvalidConfiguration, mode)
	}

	res.Pairs = pairs
	res.Matched = len(pairs)
	res.Coverage = float64(res.Matched) / float64(res.Total)
	return res, nil
}

// DocumentCoverage aggregates one provider's page scores over a
// document. Weighted uses each page's reference count as its weight
// (the primary metric); Unweighted is the plain mean over applicable
// pages (the secondary metric). Both are reported.
type DocumentCoverage struct {
	Provider   string  `json:"provider"`
	Pages      int     `json:"pages"`
	Weighted   float64 `json:"weighted"`
	Unweighted float64 `json:"unweighted"`
}

// AggregateDocument folds per-page coverage results into document
// totals. Pages without reference data contribute to neither metric.
func AggregateDocument(provider string, pages []CoverageResult) DocumentCoverage {
	agg := DocumentCoverage{Provider: provider}

	var weightSum, weighted, unweighted float64
	for _, p := range pages {
		if !p.Applicable {
			continue
		}
		agg.Pages++
		weightSum += float64(p.Total)
		weighted += p.Coverage * float64(p.Total)
		unweighted += p.Coverage
	}

	if weightSum > 0 {
		agg.Weighted = weighted / weightSum
	}
	if agg.Pages > 0 {
		agg.Unweighted = unweighted / float64(agg.Pages)
	}
	return agg
}
