package region

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// payloadSchema is the wire contract for provider region submissions.
// Coordinates may be absolute (with page_width/page_height supplied for
// normalization) or already unit-square (dimensions omitted).
const payloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["source", "regions"],
  "properties": {
    "source": {"type": "string", "minLength": 1},
    "page_width": {"type": "number", "exclusiveMinimum": 0},
    "page_height": {"type": "number", "exclusiveMinimum": 0},
    "regions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["bbox"],
        "properties": {
          "id": {"type": "string"},
          "kind": {"enum": ["block", "word", "character", "merged"]},
          "bbox": {
            "type": "object",
            "required": ["x", "y", "w", "h"],
            "properties": {
              "x": {"type": "number"},
              "y": {"type": "number"},
              "w": {"type": "number"},
              "h": {"type": "number"}
            }
          },
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "text": {"type": "string"}
        }
      }
    }
  }
}`

var compiledPayloadSchema = jsonschema.MustCompileString("region_payload.json", payloadSchema)

// Payload is a provider's raw region submission for one page.
type Payload struct {
	Source     string   `json:"source"`
	PageWidth  float64  `json:"page_width,omitempty"`
	PageHeight float64  `json:"page_height,omitempty"`
	Regions    []Region `json:"regions"`
}

// ParsePayload validates raw JSON against the wire schema and decodes
// it. Schema violations are returned verbatim so the submitting
// provider can see exactly which constraint failed.
func ParsePayload(raw []byte) (*Payload, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiledPayloadSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("payload schema violation: %w", err)
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return &p, nil
}

// Normalized returns the payload's regions mapped to the unit square.
// When the payload carries page dimensions the coordinates are treated
// as absolute and scaled; otherwise they must already be unit-square
// and are bounds-checked as-is. Degenerate regions are dropped and
// returned separately.
func (p *Payload) Normalized() ([]Region, []Region, error) {
	if p.PageWidth > 0 || p.PageHeight > 0 {
		return NormalizeAll(p.Regions, p.PageWidth, p.PageHeight)
	}

	out := make([]Region, 0, len(p.Regions))
	var dropped []Region
	for _, r := range p.Regions {
		if err := r.CheckBounds(); err != nil {
			return nil, nil, err
		}
		if r.Degenerate() {
			dropped = append(dropped, r)
			continue
		}
		out = append(out, r)
	}
	return out, dropped, nil
}
