package extract

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blocklens/blocklens/internal/region"
)

func writeTestPNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, "page.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t200\t100\t-1\t\n" +
	"2\t1\t1\t0\t0\t0\t20\t10\t160\t20\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t20\t10\t160\t20\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t20\t10\t60\t20\t96.5\thello\n" +
	"5\t1\t1\t1\t1\t2\t90\t10\t90\t20\t91.0\tworld\n"

func TestParseTSV(t *testing.T) {
	regions, err := parseTSV(sampleTSV, 200, 100)
	if err != nil {
		t.Fatalf("parseTSV failed: %v", err)
	}
	if len(regions) != 3 {
		t.Fatalf("expected 3 regions (1 block, 2 words), got %d", len(regions))
	}

	block := regions[0]
	if block.Kind != region.KindBlock {
		t.Errorf("expected block kind, got %s", block.Kind)
	}
	if block.BBox.X != 0.1 || block.BBox.Y != 0.1 || block.BBox.W != 0.8 || block.BBox.H != 0.2 {
		t.Errorf("unexpected block bbox: %+v", block.BBox)
	}
	if block.Confidence != nil {
		t.Errorf("negative conf should not be recorded, got %v", *block.Confidence)
	}

	word := regions[1]
	if word.Kind != region.KindWord {
		t.Errorf("expected word kind, got %s", word.Kind)
	}
	if word.Text != "hello" {
		t.Errorf("expected text hello, got %q", word.Text)
	}
	if word.Confidence == nil || *word.Confidence != 0.965 {
		t.Errorf("expected confidence 0.965, got %v", word.Confidence)
	}
}

func TestParseTSV_Errors(t *testing.T) {
	if _, err := parseTSV(sampleTSV, 0, 100); err == nil {
		t.Error("expected error for zero image width")
	}
	if _, err := parseTSV("2\t1\t1\t0\t0\t0\tbad\t10\t160\t20\t-1\t\n", 200, 100); err == nil {
		t.Error("expected error for non-numeric geometry")
	}
	regions, err := parseTSV("", 200, 100)
	if err != nil {
		t.Fatalf("empty output should parse: %v", err)
	}
	if len(regions) != 0 {
		t.Errorf("expected no regions from empty output, got %d", len(regions))
	}
}

func TestNewCommandExtractor(t *testing.T) {
	if _, err := NewCommandExtractor(CommandConfig{Name: "ocr"}); err == nil {
		t.Error("expected error when command is missing")
	}

	e, err := NewCommandExtractor(CommandConfig{Name: "tess", Command: "tesseract"})
	if err != nil {
		t.Fatalf("NewCommandExtractor failed: %v", err)
	}
	if e.Name() != "tess" {
		t.Errorf("expected name tess, got %s", e.Name())
	}
	if len(e.args) != 3 || e.args[1] != "stdout" || e.args[2] != "tsv" {
		t.Errorf("expected tesseract default args, got %v", e.args)
	}
}

func TestCommandExtractor_ExtractPage(t *testing.T) {
	dir := t.TempDir()
	imgPath := writeTestPNG(t, dir, 200, 100)

	tsvPath := filepath.Join(dir, "out.tsv")
	if err := os.WriteFile(tsvPath, []byte(sampleTSV), 0o644); err != nil {
		t.Fatalf("failed to write tsv fixture: %v", err)
	}

	e, err := NewCommandExtractor(CommandConfig{
		Name:    "fake",
		Command: "sh",
		Args:    []string{"-c", "cat " + tsvPath + " # {image}"},
	})
	if err != nil {
		t.Fatalf("NewCommandExtractor failed: %v", err)
	}

	regions, err := e.ExtractPage(context.Background(), imgPath, 3)
	if err != nil {
		t.Fatalf("ExtractPage failed: %v", err)
	}
	if len(regions) != 3 {
		t.Fatalf("expected 3 regions, got %d", len(regions))
	}
	for _, r := range regions {
		if r.Page != 3 {
			t.Errorf("expected page 3, got %d", r.Page)
		}
		if r.Source != "fake" {
			t.Errorf("expected source fake, got %s", r.Source)
		}
		if r.ID == "" {
			t.Error("expected ingested region to carry an ID")
		}
	}
}

func TestCommandExtractor_CommandFailure(t *testing.T) {
	dir := t.TempDir()
	imgPath := writeTestPNG(t, dir, 50, 50)

	e, err := NewCommandExtractor(CommandConfig{
		Name:    "broken",
		Command: "sh",
		Args:    []string{"-c", "echo oops >&2; exit 3 # {image}"},
	})
	if err != nil {
		t.Fatalf("NewCommandExtractor failed: %v", err)
	}

	_, err = e.ExtractPage(context.Background(), imgPath, 1)
	if err == nil {
		t.Fatal("expected error from failing command")
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}
