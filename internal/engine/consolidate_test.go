package engine

import (
	"testing"

	"github.com/blocklens/blocklens/internal/region"
)

func flags(t *testing.T, res *region.ConsolidationResult) map[string][2]bool {
	t.Helper()
	out := make(map[string][2]bool, len(res.Boxes))
	for _, b := range res.Boxes {
		out[b.ID] = [2]bool{b.Redundant, b.UniqueExtra}
	}
	return out
}

func TestConsolidate_ContainedBoxIsRedundant(t *testing.T) {
	// small sits entirely inside big: small's area is fully covered by
	// its peer, big overflows.
	regions := []region.Region{
		mkRegion("big", "providerA", 0.10, 0.10, 0.40, 0.40),
		mkRegion("small", "providerA", 0.20, 0.20, 0.10, 0.10),
	}

	res, err := Consolidate(1, "providerA", regions, region.StrategyOverlap, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	f := flags(t, res)
	if f["small"] != [2]bool{true, false} {
		t.Errorf("small flags = %v, want redundant", f["small"])
	}
	if f["big"] != [2]bool{false, true} {
		t.Errorf("big flags = %v, want unique-extra", f["big"])
	}
	if len(res.LayoutGroups) != 1 {
		t.Fatalf("got %d layout groups, want 1", len(res.LayoutGroups))
	}
	if res.LayoutGroups[0].Type != "overlap" {
		t.Errorf("group type = %q", res.LayoutGroups[0].Type)
	}
}

func TestConsolidate_TiledPeersCoverContainer(t *testing.T) {
	// left and right tile the container exactly, so the container is
	// redundant even though no single peer covers it.
	regions := []region.Region{
		mkRegion("container", "providerA", 0.10, 0.10, 0.40, 0.40),
		mkRegion("left", "providerA", 0.10, 0.10, 0.20, 0.40),
		mkRegion("right", "providerA", 0.30, 0.10, 0.20, 0.40),
	}

	res, err := Consolidate(1, "providerA", regions, region.StrategyOverlap, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	f := flags(t, res)
	if !f["container"][0] {
		t.Errorf("container flags = %v, want redundant via peer union", f["container"])
	}
	// Each tile is itself inside the container, hence redundant too.
	if !f["left"][0] || !f["right"][0] {
		t.Errorf("tile flags left=%v right=%v, want redundant", f["left"], f["right"])
	}
}

func TestConsolidate_PartialOverlapIsUniqueExtra(t *testing.T) {
	regions := []region.Region{
		mkRegion("a", "providerA", 0.10, 0.10, 0.30, 0.30),
		mkRegion("b", "providerA", 0.25, 0.25, 0.30, 0.30),
	}
	res, err := Consolidate(1, "providerA", regions, region.StrategyOverlap, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	for id, fl := range flags(t, res) {
		if fl != [2]bool{false, true} {
			t.Errorf("%s flags = %v, want unique-extra", id, fl)
		}
	}
}

func TestConsolidate_SingletonIsNeither(t *testing.T) {
	regions := []region.Region{
		mkRegion("solo", "providerA", 0.10, 0.10, 0.20, 0.20),
		mkRegion("other", "providerA", 0.60, 0.60, 0.20, 0.20),
	}
	res, err := Consolidate(1, "providerA", regions, region.StrategyOverlap, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	for id, fl := range flags(t, res) {
		if fl != [2]bool{false, false} {
			t.Errorf("%s flags = %v, want neither on singleton groups", id, fl)
		}
	}
	if len(res.LayoutGroups) != 2 {
		t.Errorf("got %d layout groups, want 2", len(res.LayoutGroups))
	}
}

func TestConsolidate_ExactlyOneFlagInGroups(t *testing.T) {
	regions := []region.Region{
		mkRegion("a", "providerA", 0.10, 0.10, 0.40, 0.40),
		mkRegion("b", "providerA", 0.15, 0.15, 0.10, 0.10),
		mkRegion("c", "providerA", 0.35, 0.35, 0.30, 0.30),
		mkRegion("lone", "providerA", 0.80, 0.80, 0.10, 0.10),
	}
	res, err := Consolidate(1, "providerA", regions, region.StrategyOverlap, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range res.Boxes {
		if b.ID == "lone" {
			if b.Redundant || b.UniqueExtra {
				t.Errorf("lone flags = %v/%v, want neither", b.Redundant, b.UniqueExtra)
			}
			continue
		}
		if b.Redundant == b.UniqueExtra {
			t.Errorf("%s flags redundant=%v uniqueExtra=%v, want exactly one", b.ID, b.Redundant, b.UniqueExtra)
		}
	}
}

func TestConsolidate_VerticalCenters(t *testing.T) {
	// Same column (center x within tolerance) groups even without any
	// geometric overlap; the offset box stays alone.
	regions := []region.Region{
		mkRegion("top", "providerA", 0.40, 0.10, 0.20, 0.10),
		mkRegion("bottom", "providerA", 0.41, 0.60, 0.18, 0.10),
		mkRegion("offset", "providerA", 0.70, 0.30, 0.20, 0.10),
	}
	res, err := Consolidate(1, "providerA", regions, region.StrategyVerticalCenters, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.LayoutGroups) != 2 {
		t.Fatalf("got %d layout groups, want 2", len(res.LayoutGroups))
	}
	f := flags(t, res)
	// top and bottom are disjoint, so neither covers the other.
	if f["top"] != [2]bool{false, true} || f["bottom"] != [2]bool{false, true} {
		t.Errorf("column flags top=%v bottom=%v, want unique-extra", f["top"], f["bottom"])
	}
	if f["offset"] != [2]bool{false, false} {
		t.Errorf("offset flags = %v, want neither", f["offset"])
	}
}

func TestConsolidate_ParagraphStrategy(t *testing.T) {
	regions := []region.Region{
		mkRegion("line1", "providerA", 0.10, 0.50, 0.30, 0.02),
		mkRegion("line2", "providerA", 0.10, 0.525, 0.30, 0.02),
	}
	res, err := Consolidate(1, "providerA", regions, region.StrategyParagraph, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.LayoutGroups) != 1 {
		t.Fatalf("got %d layout groups, want 1 paragraph", len(res.LayoutGroups))
	}
}

func TestConsolidate_InvalidStrategy(t *testing.T) {
	_, err := Consolidate(1, "providerA", nil, region.Strategy("radial"), DefaultParams())
	if err == nil {
		t.Fatal("expected invalid strategy error")
	}
}

func TestConsolidate_OrderIndependent(t *testing.T) {
	forward := []region.Region{
		mkRegion("big", "providerA", 0.10, 0.10, 0.40, 0.40),
		mkRegion("small", "providerA", 0.20, 0.20, 0.10, 0.10),
	}
	reversed := []region.Region{forward[1], forward[0]}

	r1, err := Consolidate(1, "providerA", forward, region.StrategyOverlap, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	r2, err := Consolidate(1, "providerA", reversed, region.StrategyOverlap, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if r1.LayoutGroups[0].ID != r2.LayoutGroups[0].ID {
		t.Errorf("group id depends on input order: %s vs %s", r1.LayoutGroups[0].ID, r2.LayoutGroups[0].ID)
	}
	f1, f2 := flags(t, r1), flags(t, r2)
	for id := range f1 {
		if f1[id] != f2[id] {
			t.Errorf("%s flags differ across orders: %v vs %v", id, f1[id], f2[id])
		}
	}
}
