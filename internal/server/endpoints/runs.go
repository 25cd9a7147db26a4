package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blocklens/blocklens/internal/api"
	"github.com/blocklens/blocklens/internal/engine"
	"github.com/blocklens/blocklens/internal/runs"
	"github.com/blocklens/blocklens/internal/store"
	"github.com/blocklens/blocklens/internal/svcctx"
)

// CreateRunRequest starts a benchmark run for a document.
type CreateRunRequest struct {
	DocumentID string   `json:"document_id"`
	Providers  []string `json:"providers,omitempty"`
	Baseline   string   `json:"baseline,omitempty"`
}

// RunResponse wraps a single run record.
type RunResponse struct {
	Run *runs.Run `json:"run"`
}

// CreateRunEndpoint handles POST /api/runs.
type CreateRunEndpoint struct{}

var _ api.Endpoint = (*CreateRunEndpoint)(nil)

func (e *CreateRunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/runs", e.handler
}

func (e *CreateRunEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start a run
//	@Description	Extract regions with the selected providers and score them; executes in the background
//	@Tags			runs
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateRunRequest	true	"Run parameters"
//	@Success		202		{object}	RunResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/runs [post]
func (e *CreateRunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "document_id is required")
		return
	}

	mgr := svcctx.RunsFrom(r.Context())
	if mgr == nil {
		writeError(w, http.StatusServiceUnavailable, "run manager not initialized")
		return
	}

	baseline := req.Baseline
	if baseline == "" {
		if cfgMgr := svcctx.ConfigManagerFrom(r.Context()); cfgMgr != nil {
			baseline = cfgMgr.Get().Defaults.Baseline
		}
	}

	run, err := mgr.Create(runs.CreateRequest{
		DocumentID: req.DocumentID,
		Providers:  req.Providers,
		Baseline:   baseline,
		Params:     svcctx.EngineParamsFrom(r.Context()),
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, engine.ErrInvalidConfiguration) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, RunResponse{Run: run})
}

func (e *CreateRunEndpoint) Command(getServerURL func() string) *cobra.Command {
	var providers []string
	var baseline string
	cmd := &cobra.Command{
		Use:   "create <document-id>",
		Short: "Start a benchmark run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RunResponse
			req := CreateRunRequest{DocumentID: args[0], Providers: providers, Baseline: baseline}
			if err := client.Post(cmd.Context(), "/api/runs", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringSliceVar(&providers, "providers", nil, "Extractors to run (default: all registered)")
	cmd.Flags().StringVar(&baseline, "baseline", "", "Baseline extractor for report deltas")
	return cmd
}

// ListRunsResponse holds all runs, newest first.
type ListRunsResponse struct {
	Runs []*runs.Run `json:"runs"`
}

// ListRunsEndpoint handles GET /api/runs.
type ListRunsEndpoint struct{}

var _ api.Endpoint = (*ListRunsEndpoint)(nil)

func (e *ListRunsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/runs", e.handler
}

func (e *ListRunsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List runs
//	@Description	List all runs, newest first
//	@Tags			runs
//	@Produce		json
//	@Success		200	{object}	ListRunsResponse
//	@Router			/api/runs [get]
func (e *ListRunsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	mgr := svcctx.RunsFrom(r.Context())
	if mgr == nil {
		writeError(w, http.StatusServiceUnavailable, "run manager not initialized")
		return
	}
	writeJSON(w, http.StatusOK, ListRunsResponse{Runs: mgr.List()})
}

func (e *ListRunsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListRunsResponse
			if err := client.Get(cmd.Context(), "/api/runs", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetRunEndpoint handles GET /api/runs/{run_id}.
type GetRunEndpoint struct{}

var _ api.Endpoint = (*GetRunEndpoint)(nil)

func (e *GetRunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/runs/{run_id}", e.handler
}

func (e *GetRunEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get run
//	@Description	Get a run by ID
//	@Tags			runs
//	@Produce		json
//	@Param			run_id	path		string	true	"Run ID"
//	@Success		200		{object}	RunResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/runs/{run_id} [get]
func (e *GetRunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	mgr := svcctx.RunsFrom(r.Context())
	if mgr == nil {
		writeError(w, http.StatusServiceUnavailable, "run manager not initialized")
		return
	}
	run, err := mgr.Get(r.PathValue("run_id"))
	if err != nil {
		if errors.Is(err, runs.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Run: run})
}

func (e *GetRunEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <run-id>",
		Short: "Get a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RunResponse
			if err := client.Get(cmd.Context(), "/api/runs/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// RunReportEndpoint handles GET /api/runs/{run_id}/report.
// It serves the metrics JSON by default, or the markdown summary with
// ?format=markdown.
type RunReportEndpoint struct{}

var _ api.Endpoint = (*RunReportEndpoint)(nil)

func (e *RunReportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/runs/{run_id}/report", e.handler
}

func (e *RunReportEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get run report
//	@Description	Get a completed run's report artifact
//	@Tags			runs
//	@Produce		json
//	@Param			run_id	path		string	true	"Run ID"
//	@Param			format	query		string	false	"json (default) or markdown"
//	@Success		200		{object}	runs.Report
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/runs/{run_id}/report [get]
func (e *RunReportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	mgr := svcctx.RunsFrom(r.Context())
	homeDir := svcctx.HomeFrom(r.Context())
	if mgr == nil || homeDir == nil {
		writeError(w, http.StatusServiceUnavailable, "run manager not initialized")
		return
	}

	runID := r.PathValue("run_id")
	run, err := mgr.Get(runID)
	if err != nil {
		if errors.Is(err, runs.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	if run.Status != runs.StatusDone {
		writeError(w, http.StatusConflict, fmt.Sprintf("run is %s, no report available", run.Status))
		return
	}

	name := "metrics.json"
	contentType := "application/json"
	if r.URL.Query().Get("format") == "markdown" {
		name = "report.md"
		contentType = "text/markdown; charset=utf-8"
	}

	data, err := os.ReadFile(filepath.Join(homeDir.RunDir(runID), name))
	if err != nil {
		writeError(w, http.StatusNotFound, "report artifact not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (e *RunReportEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "report <run-id>",
		Short: "Get a run's report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var rep runs.Report
			if err := client.Get(cmd.Context(), "/api/runs/"+args[0]+"/report", &rep); err != nil {
				return err
			}
			return api.Output(rep)
		},
	}
}
