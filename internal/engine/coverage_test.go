package engine

import (
	"testing"

	"github.com/blocklens/blocklens/internal/region"
)

func refsFor(t *testing.T, regions []region.Region) []region.ReferenceRegion {
	t.Helper()
	return ComputeReference(regions, 0.9)
}

func TestCoverage_SelfSeededProviderIsFull(t *testing.T) {
	// A provider whose regions alone seeded the reference list covers
	// it completely, in both match modes.
	regions := []region.Region{
		mkRegion("a1", "providerA", 0.1, 0.1, 0.2, 0.05),
		mkRegion("a2", "providerA", 0.1, 0.3, 0.25, 0.05),
		mkRegion("a3", "providerA", 0.5, 0.6, 0.3, 0.08),
	}
	refs := refsFor(t, regions)

	for _, mode := range []MatchMode{MatchGreedy, MatchBipartite} {
		res, err := Coverage("providerA", regions, refs, 0.5, mode)
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		if res.Coverage != 1 {
			t.Errorf("%s coverage = %v, want 1", mode, res.Coverage)
		}
		if !res.Applicable {
			t.Errorf("%s: expected applicable result", mode)
		}
	}
}

func TestCoverage_EmptyProviderOnPopulatedPage(t *testing.T) {
	// Provider with zero regions on a page with references: coverage
	// is 0, and the result is applicable (the page has data).
	refs := refsFor(t, []region.Region{
		mkRegion("b1", "providerB", 0.1, 0.1, 0.2, 0.05),
		mkRegion("b2", "providerB", 0.1, 0.3, 0.2, 0.05),
		mkRegion("b3", "providerB", 0.1, 0.5, 0.2, 0.05),
	})

	res, err := Coverage("providerA", nil, refs, 0.5, MatchBipartite)
	if err != nil {
		t.Fatal(err)
	}
	if res.Coverage != 0 || res.Matched != 0 {
		t.Errorf("coverage = %v matched = %d, want 0/0", res.Coverage, res.Matched)
	}
	if !res.Applicable {
		t.Error("page with references must be applicable")
	}
}

func TestCoverage_EmptyPage(t *testing.T) {
	res, err := Coverage("providerA", nil, nil, 0.5, MatchBipartite)
	if err != nil {
		t.Fatal(err)
	}
	if res.Applicable {
		t.Error("page without references must be inapplicable, not 0%")
	}
	if res.Coverage != 0 {
		t.Errorf("coverage = %v, want 0", res.Coverage)
	}
}

func TestCoverage_Bounded(t *testing.T) {
	refs := refsFor(t, []region.Region{
		mkRegion("b1", "providerB", 0.1, 0.1, 0.2, 0.05),
		mkRegion("b2", "providerB", 0.4, 0.1, 0.2, 0.05),
	})
	provider := []region.Region{
		mkRegion("a1", "providerA", 0.1, 0.1, 0.2, 0.05),
		mkRegion("a2", "providerA", 0.1, 0.1, 0.2, 0.05), // duplicate cannot double-match
		mkRegion("a3", "providerA", 0.4, 0.1, 0.2, 0.05),
	}

	for _, mode := range []MatchMode{MatchGreedy, MatchBipartite} {
		res, err := Coverage("providerA", provider, refs, 0.5, mode)
		if err != nil {
			t.Fatal(err)
		}
		if res.Coverage < 0 || res.Coverage > 1 {
			t.Errorf("%s coverage %v out of bounds", mode, res.Coverage)
		}
	}
}

func TestCoverage_BipartiteDominatesGreedy(t *testing.T) {
	// Greedy trap at threshold 0.7: ref1 (larger, processed first)
	// grabs p1, its highest-IoU region, but p1 is the only region
	// eligible for ref2, while ref1 could have used p2. Optimal pairs
	// ref1-p2 and ref2-p1.
	refs := []region.ReferenceRegion{
		{ID: "ref1", BBox: mkRegion("", "", 0, 0, 0.30, 0.1).BBox, Sources: []string{"x"}},
		{ID: "ref2", BBox: mkRegion("", "", 0, 0, 0.24, 0.1).BBox, Sources: []string{"x"}},
	}
	provider := []region.Region{
		mkRegion("p1", "providerA", 0, 0, 0.27, 0.1),    // IoU 0.9 vs ref1, 0.889 vs ref2
		mkRegion("p2", "providerA", 0.03, 0, 0.30, 0.1), // IoU 0.818 vs ref1, 0.636 vs ref2
	}

	greedy, err := Coverage("providerA", provider, refs, 0.7, MatchGreedy)
	if err != nil {
		t.Fatal(err)
	}
	optimal, err := Coverage("providerA", provider, refs, 0.7, MatchBipartite)
	if err != nil {
		t.Fatal(err)
	}
	if greedy.Matched != 1 {
		t.Errorf("greedy matched %d, want 1 (the trap)", greedy.Matched)
	}
	if optimal.Matched != 2 {
		t.Errorf("bipartite matched %d, want 2", optimal.Matched)
	}
	if optimal.Matched < greedy.Matched {
		t.Errorf("bipartite matched %d < greedy %d", optimal.Matched, greedy.Matched)
	}
}

func TestCoverage_BipartiteAugments(t *testing.T) {
	// Two references, two provider regions; r1 matches both refs, r2
	// matches only ref1. Maximum matching must pair both.
	refs := []region.ReferenceRegion{
		{ID: "ref1", BBox: mkRegion("", "", 0.0, 0.0, 0.2, 0.1).BBox, Sources: []string{"x"}},
		{ID: "ref2", BBox: mkRegion("", "", 0.05, 0.0, 0.2, 0.1).BBox, Sources: []string{"x"}},
	}
	provider := []region.Region{
		mkRegion("r1", "providerA", 0.02, 0.0, 0.2, 0.1), // overlaps both
		mkRegion("r2", "providerA", 0.0, 0.0, 0.2, 0.1),  // == ref1
	}

	res, err := Coverage("providerA", provider, refs, 0.5, MatchBipartite)
	if err != nil {
		t.Fatal(err)
	}
	if res.Matched != 2 {
		t.Errorf("matched %d, want 2 (augmenting path should free ref1's region)", res.Matched)
	}
}

func TestCoverage_UnknownMode(t *testing.T) {
	refs := refsFor(t, []region.Region{mkRegion("b1", "providerB", 0.1, 0.1, 0.2, 0.05)})
	if _, err := Coverage("providerA", nil, refs, 0.5, "optimal"); err == nil {
		t.Error("expected error for unknown match mode")
	}
}

func TestAggregateDocument(t *testing.T) {
	pages := []CoverageResult{
		{Page: 0, Total: 4, Coverage: 1.0, Applicable: true},
		{Page: 1, Total: 1, Coverage: 0.0, Applicable: true},
		{Page: 2, Total: 0, Applicable: false}, // no reference data, excluded
	}

	agg := AggregateDocument("providerA", pages)
	if agg.Pages != 2 {
		t.Errorf("pages = %d, want 2", agg.Pages)
	}
	// Weighted: (1.0*4 + 0.0*1) / 5 = 0.8
	if got, want := agg.Weighted, 0.8; got != want {
		t.Errorf("weighted = %v, want %v", got, want)
	}
	// Unweighted: (1.0 + 0.0) / 2 = 0.5
	if got, want := agg.Unweighted, 0.5; got != want {
		t.Errorf("unweighted = %v, want %v", got, want)
	}
}

func TestAggregateDocument_Empty(t *testing.T) {
	agg := AggregateDocument("providerA", nil)
	if agg.Pages != 0 || agg.Weighted != 0 || agg.Unweighted != 0 {
		t.Errorf("empty aggregate = %+v", agg)
	}
}
