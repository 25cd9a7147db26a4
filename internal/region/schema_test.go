package region

import (
	"strings"
	"testing"
)

func TestParsePayload(t *testing.T) {
	raw := []byte(`{
		"source": "pdfminer",
		"page_width": 1700,
		"page_height": 2200,
		"regions": [
			{"bbox": {"x": 170, "y": 220, "w": 340, "h": 110}, "text": "hello"},
			{"bbox": {"x": 0, "y": 0, "w": 850, "h": 55}, "kind": "word", "confidence": 0.92}
		]
	}`)

	p, err := ParsePayload(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Source != "pdfminer" {
		t.Errorf("source = %q", p.Source)
	}
	if len(p.Regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(p.Regions))
	}

	norm, dropped, err := p.Normalized()
	if err != nil {
		t.Fatalf("Normalized: %v", err)
	}
	if len(dropped) != 0 {
		t.Errorf("dropped %d regions unexpectedly", len(dropped))
	}
	if norm[0].BBox.X != 0.1 || norm[0].BBox.W != 0.2 {
		t.Errorf("normalized bbox = %+v", norm[0].BBox)
	}
}

func TestParsePayload_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing source", `{"regions": []}`},
		{"empty source", `{"source": "", "regions": []}`},
		{"missing bbox", `{"source": "x", "regions": [{"text": "a"}]}`},
		{"bad kind", `{"source": "x", "regions": [{"bbox": {"x":0,"y":0,"w":1,"h":1}, "kind": "sentence"}]}`},
		{"confidence out of range", `{"source": "x", "regions": [{"bbox": {"x":0,"y":0,"w":1,"h":1}, "confidence": 1.5}]}`},
		{"zero page width", `{"source": "x", "page_width": 0, "page_height": 100, "regions": []}`},
		{"not json", `{{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePayload([]byte(tt.raw)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestPayloadNormalized_PreNormalizedBounds(t *testing.T) {
	// No page dimensions: coordinates must already be unit-square.
	p, err := ParsePayload([]byte(`{
		"source": "pdfminer",
		"regions": [{"bbox": {"x": 0.2, "y": 0.2, "w": 1.5, "h": 0.1}}]
	}`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if _, _, err := p.Normalized(); err == nil {
		t.Error("expected bounds error for out-of-square region")
	} else if !strings.Contains(err.Error(), "invalid geometry") {
		t.Errorf("unexpected error: %v", err)
	}
}
