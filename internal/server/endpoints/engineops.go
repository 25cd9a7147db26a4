package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blocklens/blocklens/internal/api"
	"github.com/blocklens/blocklens/internal/engine"
	"github.com/blocklens/blocklens/internal/region"
	"github.com/blocklens/blocklens/internal/store"
	"github.com/blocklens/blocklens/internal/svcctx"
)

// queryParams resolves engine parameters from config and applies the
// optional query-string overrides.
func queryParams(r *http.Request) (engine.Params, error) {
	p := svcctx.EngineParamsFrom(r.Context())
	q := r.URL.Query()

	if v := q.Get("match_mode"); v != "" {
		p.MatchMode = engine.MatchMode(v)
	}
	if v := q.Get("accept_threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("invalid accept_threshold: %q", v)
		}
		p.AcceptThreshold = f
	}
	if v := q.Get("dedupe_threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("invalid dedupe_threshold: %q", v)
		}
		p.DedupeThreshold = f
	}
	return p, nil
}

// writeEngineError maps engine validation failures to 400 and the
// rest to 500.
func writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrInvalidConfiguration) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// ReferenceResponse holds the consolidated reference for a page.
type ReferenceResponse struct {
	DocumentID string                   `json:"document_id"`
	Page       int                      `json:"page"`
	References []region.ReferenceRegion `json:"references"`
}

// ReferenceEndpoint handles GET /api/documents/{document_id}/pages/{page_num}/reference.
type ReferenceEndpoint struct{}

var _ api.Endpoint = (*ReferenceEndpoint)(nil)

func (e *ReferenceEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{document_id}/pages/{page_num}/reference", e.handler
}

func (e *ReferenceEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get reference regions
//	@Description	Deduplicate all providers' regions on a page into the consolidated reference list
//	@Tags			engine
//	@Produce		json
//	@Param			document_id			path		string	true	"Document ID"
//	@Param			page_num			path		int		true	"Page number (1-indexed)"
//	@Param			providers			query		string	false	"Comma-separated provider filter"
//	@Param			dedupe_threshold	query		number	false	"IoU threshold override"
//	@Success		200					{object}	ReferenceResponse
//	@Failure		400					{object}	ErrorResponse
//	@Failure		404					{object}	ErrorResponse
//	@Router			/api/documents/{document_id}/pages/{page_num}/reference [get]
func (e *ReferenceEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	docID, pageNum, ok := pageParams(w, r)
	if !ok {
		return
	}
	params, err := queryParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pr, ok := pageRegions(w, r, docID, pageNum)
	if !ok {
		return
	}

	refs, err := svcctx.EngineFrom(r.Context()).Reference(pr, params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReferenceResponse{DocumentID: docID, Page: pageNum, References: refs})
}

func (e *ReferenceEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "reference <document-id> <page>",
		Short: "Get the consolidated reference regions for a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ReferenceResponse
			path := fmt.Sprintf("/api/documents/%s/pages/%s/reference", args[0], args[1])
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CoverageResponse holds per-provider coverage for one page.
type CoverageResponse struct {
	DocumentID string                  `json:"document_id"`
	Page       int                     `json:"page"`
	Results    []engine.CoverageResult `json:"results"`
}

// CoverageEndpoint handles GET /api/documents/{document_id}/pages/{page_num}/coverage.
type CoverageEndpoint struct{}

var _ api.Endpoint = (*CoverageEndpoint)(nil)

func (e *CoverageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{document_id}/pages/{page_num}/coverage", e.handler
}

func (e *CoverageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Score page coverage
//	@Description	Match each provider's regions against the page reference and report coverage
//	@Tags			engine
//	@Produce		json
//	@Param			document_id			path		string	true	"Document ID"
//	@Param			page_num			path		int		true	"Page number (1-indexed)"
//	@Param			provider			query		string	false	"Score a single provider"
//	@Param			providers			query		string	false	"Comma-separated provider filter for the reference"
//	@Param			match_mode			query		string	false	"greedy or bipartite"
//	@Param			accept_threshold	query		number	false	"IoU threshold override"
//	@Success		200					{object}	CoverageResponse
//	@Failure		400					{object}	ErrorResponse
//	@Failure		404					{object}	ErrorResponse
//	@Router			/api/documents/{document_id}/pages/{page_num}/coverage [get]
func (e *CoverageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	docID, pageNum, ok := pageParams(w, r)
	if !ok {
		return
	}
	params, err := queryParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pr, ok := pageRegions(w, r, docID, pageNum)
	if !ok {
		return
	}

	providers := pr.Providers()
	if p := r.URL.Query().Get("provider"); p != "" {
		providers = []string{p}
	}

	eng := svcctx.EngineFrom(r.Context())
	resp := CoverageResponse{DocumentID: docID, Page: pageNum}
	for _, name := range providers {
		cov, err := eng.Coverage(pr, name, params)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		resp.Results = append(resp.Results, cov)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *CoverageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "coverage <document-id> <page>",
		Short: "Score providers against the page reference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CoverageResponse
			path := fmt.Sprintf("/api/documents/%s/pages/%s/coverage", args[0], args[1])
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DocumentCoverageResponse holds document-level coverage aggregates.
type DocumentCoverageResponse struct {
	DocumentID string                    `json:"document_id"`
	Results    []engine.DocumentCoverage `json:"results"`
}

// DocumentCoverageEndpoint handles GET /api/documents/{document_id}/coverage.
type DocumentCoverageEndpoint struct{}

var _ api.Endpoint = (*DocumentCoverageEndpoint)(nil)

func (e *DocumentCoverageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{document_id}/coverage", e.handler
}

func (e *DocumentCoverageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Score document coverage
//	@Description	Aggregate per-page coverage into weighted and unweighted document scores per provider
//	@Tags			engine
//	@Produce		json
//	@Param			document_id	path		string	true	"Document ID"
//	@Param			providers	query		string	false	"Comma-separated provider filter"
//	@Success		200			{object}	DocumentCoverageResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/documents/{document_id}/coverage [get]
func (e *DocumentCoverageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("document_id")
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	doc, err := st.GetDocument(docID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	params, err := queryParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := providerFilter(r)
	eng := svcctx.EngineFrom(r.Context())

	perProvider := make(map[string][]engine.CoverageResult)
	var order []string
	for page := 1; page <= doc.PageCount; page++ {
		pr, err := st.PageRegions(docID, page, filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, name := range pr.Providers() {
			cov, err := eng.Coverage(pr, name, params)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			if _, seen := perProvider[name]; !seen {
				order = append(order, name)
			}
			perProvider[name] = append(perProvider[name], cov)
		}
	}

	resp := DocumentCoverageResponse{DocumentID: docID}
	for _, name := range order {
		resp.Results = append(resp.Results, engine.AggregateDocument(name, perProvider[name]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *DocumentCoverageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "doc-coverage <document-id>",
		Short: "Aggregate coverage across a whole document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp DocumentCoverageResponse
			if err := client.Get(cmd.Context(), "/api/documents/"+args[0]+"/coverage", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// MergeRequest selects the merge mode for a page.
type MergeRequest struct {
	Mode string `json:"mode"`
}

// MergeResponse holds merge groups for a page.
type MergeResponse struct {
	DocumentID string              `json:"document_id"`
	Page       int                 `json:"page"`
	Mode       string              `json:"mode"`
	Groups     []region.MergeGroup `json:"groups"`
}

// MergeEndpoint handles POST /api/documents/{document_id}/pages/{page_num}/merge.
type MergeEndpoint struct{}

var _ api.Endpoint = (*MergeEndpoint)(nil)

func (e *MergeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{document_id}/pages/{page_num}/merge", e.handler
}

func (e *MergeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Merge page regions
//	@Description	Group a page's regions by adjacency using the vertical, horizontal, or paragraph strategy
//	@Tags			engine
//	@Accept			json
//	@Produce		json
//	@Param			document_id	path		string			true	"Document ID"
//	@Param			page_num	path		int				true	"Page number (1-indexed)"
//	@Param			providers	query		string			false	"Comma-separated provider filter"
//	@Param			request		body		MergeRequest	true	"Merge mode"
//	@Success		200			{object}	MergeResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/documents/{document_id}/pages/{page_num}/merge [post]
func (e *MergeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	docID, pageNum, ok := pageParams(w, r)
	if !ok {
		return
	}
	var req MergeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params, err := queryParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pr, ok := pageRegions(w, r, docID, pageNum)
	if !ok {
		return
	}

	groups, err := svcctx.EngineFrom(r.Context()).Merge(pr, region.MergeMode(req.Mode), params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MergeResponse{
		DocumentID: docID,
		Page:       pageNum,
		Mode:       req.Mode,
		Groups:     groups,
	})
}

func (e *MergeEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}

// ConsolidateRequest selects the provider and grouping strategy.
type ConsolidateRequest struct {
	Provider string `json:"provider"`
	Strategy string `json:"strategy"`
}

// ConsolidateEndpoint handles POST /api/documents/{document_id}/pages/{page_num}/consolidate.
type ConsolidateEndpoint struct{}

var _ api.Endpoint = (*ConsolidateEndpoint)(nil)

func (e *ConsolidateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{document_id}/pages/{page_num}/consolidate", e.handler
}

func (e *ConsolidateEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Consolidate provider regions
//	@Description	Group one provider's regions and flag redundant and unique-extra members
//	@Tags			engine
//	@Accept			json
//	@Produce		json
//	@Param			document_id	path		string				true	"Document ID"
//	@Param			page_num	path		int					true	"Page number (1-indexed)"
//	@Param			request		body		ConsolidateRequest	true	"Provider and strategy"
//	@Success		200			{object}	region.ConsolidationResult
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/documents/{document_id}/pages/{page_num}/consolidate [post]
func (e *ConsolidateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	docID, pageNum, ok := pageParams(w, r)
	if !ok {
		return
	}
	var req ConsolidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}
	params, err := queryParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}
	if _, err := st.GetDocument(docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	pr, err := st.PageRegions(docID, pageNum, []string{req.Provider})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := svcctx.EngineFrom(r.Context()).Consolidate(pr, req.Provider, region.Strategy(req.Strategy), params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *ConsolidateEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}
