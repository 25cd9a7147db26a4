package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/blocklens/blocklens/internal/region"
)

var errBoom = errors.New("boom")

func pageFixture(doc string, page int) PageRegions {
	return PageRegions{
		DocumentID: doc,
		Page:       page,
		ByProvider: map[string][]region.Region{
			"providerA": {
				mkRegion("a1", "providerA", 0.10, 0.10, 0.20, 0.10),
				mkRegion("a2", "providerA", 0.10, 0.40, 0.20, 0.10),
			},
			"providerB": {
				mkRegion("b1", "providerB", 0.10, 0.10, 0.20, 0.10),
			},
		},
	}
}

func TestEngine_ReferenceCached(t *testing.T) {
	e := New(nil)
	pr := pageFixture("doc1", 1)

	first, err := e.Reference(pr, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 {
		t.Fatalf("got %d references, want 2", len(first))
	}

	before := e.cache.len()
	second, err := e.Reference(pr, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if e.cache.len() != before {
		t.Errorf("cache grew on repeat call: %d -> %d", before, e.cache.len())
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("reference %d id changed between calls: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestEngine_ParamsChangeMissesCache(t *testing.T) {
	e := New(nil)
	pr := pageFixture("doc1", 1)

	if _, err := e.Reference(pr, DefaultParams()); err != nil {
		t.Fatal(err)
	}
	n := e.cache.len()

	p := DefaultParams()
	p.DedupeThreshold = 0.8
	if _, err := e.Reference(pr, p); err != nil {
		t.Fatal(err)
	}
	if e.cache.len() != n+1 {
		t.Errorf("cache entries = %d, want %d (new key per parameter set)", e.cache.len(), n+1)
	}
}

func TestEngine_CoverageUsesSharedReference(t *testing.T) {
	e := New(nil)
	pr := pageFixture("doc1", 1)

	resA, err := e.Coverage(pr, "providerA", DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if resA.Coverage != 1 {
		t.Errorf("providerA coverage = %v, want 1 (covers every reference)", resA.Coverage)
	}
	resB, err := e.Coverage(pr, "providerB", DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if resB.Total != resA.Total {
		t.Errorf("providers scored against different reference counts: %d vs %d", resB.Total, resA.Total)
	}
	if resB.Coverage != 0.5 {
		t.Errorf("providerB coverage = %v, want 0.5", resB.Coverage)
	}
}

func TestEngine_CoverageProviderWithoutRegions(t *testing.T) {
	e := New(nil)
	pr := pageFixture("doc1", 1)

	res, err := e.Coverage(pr, "providerZ", DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if res.Coverage != 0 || !res.Applicable {
		t.Errorf("missing provider: coverage=%v applicable=%v, want 0/true", res.Coverage, res.Applicable)
	}
}

func TestEngine_InvalidParams(t *testing.T) {
	e := New(nil)
	pr := pageFixture("doc1", 1)

	p := DefaultParams()
	p.DedupeThreshold = 1.5
	if _, err := e.Reference(pr, p); err == nil {
		t.Error("expected validation error for out-of-range threshold")
	}
	p = DefaultParams()
	p.MatchMode = MatchMode("psychic")
	if _, err := e.Coverage(pr, "providerA", p); err == nil {
		t.Error("expected validation error for unknown match mode")
	}
	if e.cache.len() != 0 {
		t.Errorf("failed calls cached %d entries", e.cache.len())
	}
}

func TestEngine_Invalidate(t *testing.T) {
	e := New(nil)
	doc1 := pageFixture("doc1", 1)
	doc2 := pageFixture("doc2", 1)

	if _, err := e.Reference(doc1, DefaultParams()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Reference(doc2, DefaultParams()); err != nil {
		t.Fatal(err)
	}
	if e.cache.len() != 2 {
		t.Fatalf("cache entries = %d, want 2", e.cache.len())
	}

	e.Invalidate("doc1")
	if e.cache.len() != 1 {
		t.Errorf("cache entries after invalidate = %d, want 1", e.cache.len())
	}
	// The surviving entry still serves doc2.
	if _, err := e.Reference(doc2, DefaultParams()); err != nil {
		t.Fatal(err)
	}
	if e.cache.len() != 1 {
		t.Errorf("doc2 recomputed after doc1 invalidation")
	}
}

func TestEngine_MergeAndConsolidate(t *testing.T) {
	e := New(nil)
	pr := PageRegions{
		DocumentID: "doc1",
		Page:       3,
		ByProvider: map[string][]region.Region{
			"providerA": {
				mkRegion("c", "providerA", 0.5, 0.5, 0.1, 0.02),
				mkRegion("d", "providerA", 0.5, 0.53, 0.1, 0.02),
			},
		},
	}

	groups, err := e.Merge(pr, region.MergeVertical, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].Page != 3 {
		t.Fatalf("merge groups = %+v", groups)
	}

	res, err := e.Consolidate(pr, "providerA", region.StrategyOverlap, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Boxes) != 2 {
		t.Fatalf("consolidation boxes = %d, want 2", len(res.Boxes))
	}

	if _, err := e.Consolidate(pr, "providerZ", region.StrategyOverlap, DefaultParams()); err == nil {
		t.Error("expected error consolidating an absent provider")
	}
}

func TestResultCache_SingleFlight(t *testing.T) {
	c := newResultCache()

	var calls atomic.Int32
	gate := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.do("k", func() (any, error) {
				calls.Add(1)
				<-gate
				return 42, nil
			})
			if err != nil {
				t.Error(err)
			}
			if v.(int) != 42 {
				t.Errorf("got %v, want 42", v)
			}
		}()
	}
	close(gate)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("compute ran %d times for one key, want 1", n)
	}
}

func TestResultCache_ErrorNotCached(t *testing.T) {
	c := newResultCache()

	fail := true
	fn := func() (any, error) {
		if fail {
			return nil, errBoom
		}
		return "ok", nil
	}
	if _, err := c.do("k", fn); err == nil {
		t.Fatal("expected error")
	}
	if c.len() != 0 {
		t.Fatalf("error cached: %d entries", c.len())
	}

	fail = false
	v, err := c.do("k", fn)
	if err != nil {
		t.Fatal(err)
	}
	if v.(string) != "ok" {
		t.Errorf("got %v, want ok", v)
	}
}
