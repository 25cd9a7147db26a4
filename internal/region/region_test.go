package region

import (
	"errors"
	"testing"

	"github.com/blocklens/blocklens/internal/geometry"
)

func TestNormalize(t *testing.T) {
	r := Region{
		Source: "pdfminer",
		BBox:   geometry.NewRect(170, 220, 340, 110),
	}

	n, err := Normalize(r, 1700, 2200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.BBox.X != 0.1 || n.BBox.Y != 0.1 || n.BBox.W != 0.2 || n.BBox.H != 0.05 {
		t.Errorf("normalized bbox = %+v", n.BBox)
	}

	// Input must not be mutated.
	if r.BBox.X != 170 {
		t.Error("Normalize mutated its input")
	}
}

func TestNormalize_InvalidPageDimensions(t *testing.T) {
	r := Region{BBox: geometry.NewRect(10, 10, 20, 20)}
	for _, dims := range [][2]float64{{0, 100}, {100, 0}, {-1, 100}} {
		if _, err := Normalize(r, dims[0], dims[1]); err == nil {
			t.Errorf("expected error for page dimensions %v", dims)
		}
	}
}

func TestNormalizeAll_DropsDegenerate(t *testing.T) {
	regions := []Region{
		{ID: "a", BBox: geometry.NewRect(100, 100, 200, 50)},
		{ID: "b", BBox: geometry.NewRect(100, 100, 0, 50)}, // zero width
		{ID: "c", BBox: geometry.NewRect(300, 300, 100, 100)},
	}

	kept, dropped, err := NormalizeAll(regions, 1000, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kept) != 2 {
		t.Errorf("kept %d regions, want 2", len(kept))
	}
	if len(dropped) != 1 || dropped[0].ID != "b" {
		t.Errorf("dropped = %+v, want region b", dropped)
	}
}

func TestNormalizeAll_RejectsOutOfPage(t *testing.T) {
	regions := []Region{
		{ID: "a", BBox: geometry.NewRect(100, 100, 200, 50)},
		{ID: "b", BBox: geometry.NewRect(900, 100, 200, 50)}, // extends past the right edge
	}

	_, _, err := NormalizeAll(regions, 1000, 1000)
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("error = %v, want ErrInvalidGeometry", err)
	}
}

func TestCheckBounds(t *testing.T) {
	tests := []struct {
		name    string
		bbox    geometry.Rect
		wantErr bool
	}{
		{"inside", geometry.NewRect(0.1, 0.1, 0.2, 0.05), false},
		{"full page", geometry.NewRect(0, 0, 1, 1), false},
		{"rounding slack", geometry.NewRect(0.9, 0.9, 0.1000000001, 0.1), false},
		{"negative width", geometry.NewRect(0.1, 0.1, -0.2, 0.1), true},
		{"origin outside", geometry.NewRect(1.2, 0.1, 0.1, 0.1), true},
		{"extent outside", geometry.NewRect(0.9, 0.9, 0.3, 0.05), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Region{BBox: tt.bbox}.CheckBounds()
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckBounds() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIngest(t *testing.T) {
	raw := []Region{
		{BBox: geometry.NewRect(0.1, 0.1, 0.2, 0.05), Text: "first"},
		{ID: "keep-me", BBox: geometry.NewRect(0.1, 0.2, 0.2, 0.05), Kind: KindWord},
	}

	got := Ingest(raw, "tesseract", 3)

	if got[0].ID == "" {
		t.Error("missing id should be assigned")
	}
	if got[1].ID != "keep-me" {
		t.Errorf("existing id overwritten: %q", got[1].ID)
	}
	if got[0].Kind != KindBlock {
		t.Errorf("default kind = %q, want block", got[0].Kind)
	}
	if got[1].Kind != KindWord {
		t.Errorf("explicit kind overwritten: %q", got[1].Kind)
	}
	for i, r := range got {
		if r.Source != "tesseract" || r.Page != 3 || r.Order != i {
			t.Errorf("region %d = %+v", i, r)
		}
	}
}

func TestValidEnums(t *testing.T) {
	if !ValidMergeMode(MergeVertical) || ValidMergeMode("diagonal") {
		t.Error("ValidMergeMode misclassified")
	}
	if !ValidStrategy(StrategyVerticalCenters) || ValidStrategy("magic") {
		t.Error("ValidStrategy misclassified")
	}
	if !ValidKind(KindMerged) || ValidKind("sentence") {
		t.Error("ValidKind misclassified")
	}
}
