package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/blocklens/blocklens/internal/geometry"
	"github.com/blocklens/blocklens/internal/rasterize"
	"github.com/blocklens/blocklens/internal/region"
)

// imagePlaceholder in command args is replaced with the page image
// path. Without it the path is appended as the last argument.
const imagePlaceholder = "{image}"

// CommandConfig holds configuration for a command-line extractor.
type CommandConfig struct {
	Name    string
	Command string
	Args    []string
}

// CommandExtractor shells out to an OCR tool that prints Tesseract-style
// TSV on stdout (level, block/par/line/word numbers, left, top, width,
// height, conf, text).
type CommandExtractor struct {
	name    string
	command string
	args    []string
}

// NewCommandExtractor creates an extractor backed by an external command.
func NewCommandExtractor(cfg CommandConfig) (*CommandExtractor, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("command extractor %q requires a command", cfg.Name)
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Command
	}
	args := cfg.Args
	if len(args) == 0 {
		// Tesseract defaults when the config gives only a binary.
		args = []string{imagePlaceholder, "stdout", "tsv"}
	}
	return &CommandExtractor{name: name, command: cfg.Command, args: args}, nil
}

// Name returns the engine identifier.
func (e *CommandExtractor) Name() string {
	return e.name
}

// ExtractPage runs the command against the page image and parses its
// TSV output into normalized regions.
func (e *CommandExtractor) ExtractPage(ctx context.Context, imagePath string, page int) ([]region.Region, error) {
	w, h, err := rasterize.ImageSize(imagePath)
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, len(e.args)+1)
	substituted := false
	for _, a := range e.args {
		if strings.Contains(a, imagePlaceholder) {
			a = strings.ReplaceAll(a, imagePlaceholder, imagePath)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, imagePath)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", e.command, err, strings.TrimSpace(stderr.String()))
	}

	regions, err := parseTSV(stdout.String(), w, h)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s output: %w", e.command, err)
	}
	return region.Ingest(regions, e.name, page), nil
}

// parseTSV converts Tesseract TSV rows into unit-square regions.
// Level 2 rows are text blocks, level 5 rows are words; other levels
// (page, paragraph, line) are skipped.
func parseTSV(output string, imgW, imgH float64) ([]region.Region, error) {
	if imgW <= 0 || imgH <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %gx%g", imgW, imgH)
	}

	var regions []region.Region
	for i, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 11 {
			continue
		}
		level, err := strconv.Atoi(fields[0])
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("row %d: bad level %q", i, fields[0])
		}

		var kind region.Kind
		switch level {
		case 2:
			kind = region.KindBlock
		case 5:
			kind = region.KindWord
		default:
			continue
		}

		left, err1 := strconv.ParseFloat(fields[6], 64)
		top, err2 := strconv.ParseFloat(fields[7], 64)
		width, err3 := strconv.ParseFloat(fields[8], 64)
		height, err4 := strconv.ParseFloat(fields[9], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, fmt.Errorf("row %d: bad geometry", i)
		}

		r := region.Region{
			Kind: kind,
			BBox: geometry.Rect{
				X: left / imgW,
				Y: top / imgH,
				W: width / imgW,
				H: height / imgH,
			},
		}
		if conf, err := strconv.ParseFloat(fields[10], 64); err == nil && conf >= 0 {
			c := conf / 100
			r.Confidence = &c
		}
		if len(fields) > 11 {
			r.Text = strings.TrimSpace(fields[11])
		}
		regions = append(regions, r)
	}
	return regions, nil
}
