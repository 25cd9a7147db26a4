package runs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blocklens/blocklens/internal/engine"
	"github.com/blocklens/blocklens/internal/store"
)

const (
	metricsFile = "metrics.json"
	reportFile  = "report.md"
)

// Report is the scoring output of a completed run.
type Report struct {
	RunID       string            `json:"run_id"`
	DocumentID  string            `json:"document_id"`
	Document    string            `json:"document"`
	GeneratedAt time.Time         `json:"generated_at"`
	Params      engine.Params     `json:"params"`
	Baseline    string            `json:"baseline,omitempty"`
	Providers   []ProviderSummary `json:"providers"`
}

// ProviderSummary is one provider's document and per-page scores.
type ProviderSummary struct {
	Provider string                  `json:"provider"`
	Document engine.DocumentCoverage `json:"document"`
	Pages    []PageSummary           `json:"pages"`

	// ExtractionSeconds is the wall time the provider spent
	// extracting regions across the whole document.
	ExtractionSeconds float64 `json:"extraction_seconds"`

	// BaselineDelta is weighted coverage minus the baseline's, set
	// only when the run has a baseline.
	BaselineDelta *float64 `json:"baseline_delta,omitempty"`
}

// PageSummary is one provider's score on one page.
type PageSummary struct {
	Page       int     `json:"page"`
	Matched    int     `json:"matched"`
	Total      int     `json:"total"`
	Coverage   float64 `json:"coverage"`
	Applicable bool    `json:"applicable"`
}

// buildReport aggregates per-page coverage into the run report.
// Providers are ordered by weighted coverage, best first.
func buildReport(run *Run, doc store.Document, pages map[string][]engine.CoverageResult, timings map[string]float64) *Report {
	rep := &Report{
		RunID:       run.ID,
		DocumentID:  doc.ID,
		Document:    doc.Name,
		GeneratedAt: time.Now().UTC(),
		Params:      run.Params,
		Baseline:    run.Baseline,
	}

	for _, name := range run.Providers {
		results := pages[name]
		ps := ProviderSummary{
			Provider:          name,
			Document:          engine.AggregateDocument(name, results),
			ExtractionSeconds: timings[name],
		}
		for _, cov := range results {
			ps.Pages = append(ps.Pages, PageSummary{
				Page:       cov.Page,
				Matched:    cov.Matched,
				Total:      cov.Total,
				Coverage:   cov.Coverage,
				Applicable: cov.Applicable,
			})
		}
		rep.Providers = append(rep.Providers, ps)
	}

	if run.Baseline != "" {
		var base float64
		for _, ps := range rep.Providers {
			if ps.Provider == run.Baseline {
				base = ps.Document.Weighted
				break
			}
		}
		for i := range rep.Providers {
			delta := rep.Providers[i].Document.Weighted - base
			rep.Providers[i].BaselineDelta = &delta
		}
	}

	sort.SliceStable(rep.Providers, func(i, j int) bool {
		return rep.Providers[i].Document.Weighted > rep.Providers[j].Document.Weighted
	})

	return rep
}

// writeArtifacts writes metrics.json and report.md into the run's
// directory and returns the artifact paths relative to the home dir.
func (m *Manager) writeArtifacts(runID string, rep *Report) ([]string, error) {
	if err := m.home.EnsureRunDir(runID); err != nil {
		return nil, err
	}
	dir := m.home.RunDir(runID)

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metrics: %w", err)
	}
	metricsPath := filepath.Join(dir, metricsFile)
	if err := os.WriteFile(metricsPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write metrics: %w", err)
	}

	reportPath := filepath.Join(dir, reportFile)
	if err := os.WriteFile(reportPath, []byte(rep.Markdown()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	return []string{metricsPath, reportPath}, nil
}

// Markdown renders the report as a summary table plus a per-page
// breakdown for each provider.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Coverage report: %s\n\n", r.Document)
	fmt.Fprintf(&b, "Run `%s`, generated %s.\n\n", r.RunID, r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Match mode `%s`, accept threshold %.2f, dedupe threshold %.2f.\n\n",
		r.Params.MatchMode, r.Params.AcceptThreshold, r.Params.DedupeThreshold)

	if r.Baseline != "" {
		b.WriteString("| Provider | Pages | Weighted | Unweighted | Extraction | vs baseline |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|\n")
	} else {
		b.WriteString("| Provider | Pages | Weighted | Unweighted | Extraction |\n")
		b.WriteString("|---|---:|---:|---:|---:|\n")
	}
	for _, ps := range r.Providers {
		if r.Baseline != "" {
			delta := ""
			if ps.BaselineDelta != nil {
				delta = fmt.Sprintf("%+.1f%%", *ps.BaselineDelta*100)
			}
			fmt.Fprintf(&b, "| %s | %d | %.1f%% | %.1f%% | %.2fs | %s |\n",
				ps.Provider, ps.Document.Pages, ps.Document.Weighted*100, ps.Document.Unweighted*100, ps.ExtractionSeconds, delta)
		} else {
			fmt.Fprintf(&b, "| %s | %d | %.1f%% | %.1f%% | %.2fs |\n",
				ps.Provider, ps.Document.Pages, ps.Document.Weighted*100, ps.Document.Unweighted*100, ps.ExtractionSeconds)
		}
	}

	for _, ps := range r.Providers {
		fmt.Fprintf(&b, "\n## %s\n\n", ps.Provider)
		b.WriteString("| Page | Matched | Total | Coverage |\n")
		b.WriteString("|---:|---:|---:|---:|\n")
		for _, pg := range ps.Pages {
			if !pg.Applicable {
				fmt.Fprintf(&b, "| %d | - | 0 | n/a |\n", pg.Page)
				continue
			}
			fmt.Fprintf(&b, "| %d | %d | %d | %.1f%% |\n", pg.Page, pg.Matched, pg.Total, pg.Coverage*100)
		}
	}

	return b.String()
}
