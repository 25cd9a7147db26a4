package store

import (
	"errors"
	"testing"
	"time"

	"github.com/blocklens/blocklens/internal/geometry"
	"github.com/blocklens/blocklens/internal/home"
	"github.com/blocklens/blocklens/internal/region"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create home: %v", err)
	}
	s, err := New(h, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func testDoc(id string) Document {
	return Document{
		ID:        id,
		Name:      id + ".pdf",
		PageCount: 3,
		CreatedAt: time.Now().UTC(),
	}
}

func testRegion(id string, page int, source string) region.Region {
	return region.Region{
		ID:     id,
		Page:   page,
		Source: source,
		Kind:   region.KindBlock,
		BBox:   geometry.Rect{X: 0.1, Y: 0.1, W: 0.2, H: 0.1},
	}
}

func TestStore_SaveAndGetDocument(t *testing.T) {
	s := newTestStore(t)

	doc := testDoc("doc1")
	if err := s.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument() error = %v", err)
	}

	got, err := s.GetDocument("doc1")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got.Name != "doc1.pdf" || got.PageCount != 3 {
		t.Errorf("document = %+v", got)
	}
}

func TestStore_GetMissingDocument(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetDocument("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListDocuments(t *testing.T) {
	s := newTestStore(t)

	older := testDoc("older")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testDoc("newer")

	if err := s.SaveDocument(older); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveDocument(newer); err != nil {
		t.Fatal(err)
	}

	docs, err := s.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].ID != "newer" {
		t.Errorf("documents not sorted newest first: %s", docs[0].ID)
	}
}

func TestStore_SaveRegionsRequiresDocument(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveRegions("ghost", "providerA", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestStore_RegionsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveDocument(testDoc("doc1")); err != nil {
		t.Fatal(err)
	}

	regions := []region.Region{
		testRegion("r1", 1, "providerA"),
		testRegion("r2", 2, "providerA"),
	}
	if err := s.SaveRegions("doc1", "providerA", regions); err != nil {
		t.Fatalf("SaveRegions() error = %v", err)
	}

	got, err := s.GetRegions("doc1", "providerA")
	if err != nil {
		t.Fatalf("GetRegions() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "r1" {
		t.Errorf("regions = %+v", got)
	}
}

func TestStore_GetRegionsUnknownProvider(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveDocument(testDoc("doc1")); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetRegions("doc1", "nobody")
	if err != nil {
		t.Fatalf("GetRegions() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d regions for unknown provider", len(got))
	}
}

func TestStore_Providers(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveDocument(testDoc("doc1")); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{"zeta", "alpha"} {
		if err := s.SaveRegions("doc1", p, []region.Region{testRegion("r", 1, p)}); err != nil {
			t.Fatal(err)
		}
	}

	providers, err := s.Providers("doc1")
	if err != nil {
		t.Fatalf("Providers() error = %v", err)
	}
	if len(providers) != 2 || providers[0] != "alpha" || providers[1] != "zeta" {
		t.Errorf("providers = %v, want sorted [alpha zeta]", providers)
	}
}

func TestStore_PageRegions(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveDocument(testDoc("doc1")); err != nil {
		t.Fatal(err)
	}

	if err := s.SaveRegions("doc1", "providerA", []region.Region{
		testRegion("a1", 1, "providerA"),
		testRegion("a2", 2, "providerA"),
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRegions("doc1", "providerB", []region.Region{
		testRegion("b1", 1, "providerB"),
	}); err != nil {
		t.Fatal(err)
	}

	pr, err := s.PageRegions("doc1", 1, nil)
	if err != nil {
		t.Fatalf("PageRegions() error = %v", err)
	}
	if pr.DocumentID != "doc1" || pr.Page != 1 {
		t.Errorf("page regions metadata = %+v", pr)
	}
	if len(pr.ByProvider["providerA"]) != 1 || pr.ByProvider["providerA"][0].ID != "a1" {
		t.Errorf("providerA regions = %+v", pr.ByProvider["providerA"])
	}
	if len(pr.ByProvider["providerB"]) != 1 {
		t.Errorf("providerB regions = %+v", pr.ByProvider["providerB"])
	}

	// Restricting to a subset drops the rest.
	pr, err = s.PageRegions("doc1", 1, []string{"providerB"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := pr.ByProvider["providerA"]; ok {
		t.Error("provider subset was not honored")
	}
}

func TestStore_DeleteDocument(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveDocument(testDoc("doc1")); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRegions("doc1", "providerA", []region.Region{testRegion("r1", 1, "providerA")}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteDocument("doc1"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}

	if _, err := s.GetDocument("doc1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("document survived delete: %v", err)
	}
	providers, err := s.Providers("doc1")
	if err != nil {
		t.Fatal(err)
	}
	if len(providers) != 0 {
		t.Errorf("regions survived document delete: %v", providers)
	}

	if err := s.DeleteDocument("doc1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}
