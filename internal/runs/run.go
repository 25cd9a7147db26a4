package runs

import (
	"time"

	"github.com/google/uuid"

	"github.com/blocklens/blocklens/internal/engine"
)

// Status represents the current state of a run.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Run is one benchmark execution: extract regions from a document with
// a set of providers, score every provider against the consolidated
// reference, and write report artifacts.
type Run struct {
	ID          string        `json:"id"`
	DocumentID  string        `json:"document_id"`
	Providers   []string      `json:"providers"`
	Baseline    string        `json:"baseline,omitempty"`
	Params      engine.Params `json:"params"`
	Status      Status        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Error       string        `json:"error,omitempty"`
	Artifacts   []string      `json:"artifacts,omitempty"`
}

// NewRun creates a pending run record.
func NewRun(documentID string, providers []string, baseline string, params engine.Params) *Run {
	return &Run{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		Providers:  providers,
		Baseline:   baseline,
		Params:     params,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// Terminal reports whether the run has finished, successfully or not.
func (r *Run) Terminal() bool {
	return r.Status == StatusDone || r.Status == StatusFailed
}
