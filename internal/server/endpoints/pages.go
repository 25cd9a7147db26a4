package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blocklens/blocklens/internal/api"
	"github.com/blocklens/blocklens/internal/engine"
	"github.com/blocklens/blocklens/internal/geometry"
	"github.com/blocklens/blocklens/internal/region"
	"github.com/blocklens/blocklens/internal/store"
	"github.com/blocklens/blocklens/internal/svcctx"
)

// pageParams pulls the document ID and page number out of the path.
func pageParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	docID := r.PathValue("document_id")
	if docID == "" {
		writeError(w, http.StatusBadRequest, "document_id is required")
		return "", 0, false
	}
	pageNum, err := strconv.Atoi(r.PathValue("page_num"))
	if err != nil || pageNum < 1 {
		writeError(w, http.StatusBadRequest, "page_num must be a positive integer")
		return "", 0, false
	}
	return docID, pageNum, true
}

// providerFilter parses the optional ?providers=a,b query parameter.
// Nil means all stored providers.
func providerFilter(r *http.Request) []string {
	raw := r.URL.Query().Get("providers")
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pageRegions loads a page's regions honoring the providers filter.
func pageRegions(w http.ResponseWriter, r *http.Request, docID string, pageNum int) (engine.PageRegions, bool) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return engine.PageRegions{}, false
	}
	if _, err := st.GetDocument(docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return engine.PageRegions{}, false
	}
	pr, err := st.PageRegions(docID, pageNum, providerFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return engine.PageRegions{}, false
	}
	return pr, true
}

// PageImageEndpoint handles GET /api/documents/{document_id}/pages/{page_num}/image.
type PageImageEndpoint struct{}

var _ api.Endpoint = (*PageImageEndpoint)(nil)

func (e *PageImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{document_id}/pages/{page_num}/image", e.handler
}

func (e *PageImageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get page image
//	@Description	Get the rendered PNG for one page of a document
//	@Tags			pages
//	@Produce		image/png
//	@Param			document_id	path		string	true	"Document ID"
//	@Param			page_num	path		int		true	"Page number (1-indexed)"
//	@Success		200			{file}		binary
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/documents/{document_id}/pages/{page_num}/image [get]
func (e *PageImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	docID, pageNum, ok := pageParams(w, r)
	if !ok {
		return
	}

	homeDir := svcctx.HomeFrom(r.Context())
	if homeDir == nil {
		writeError(w, http.StatusServiceUnavailable, "home directory not initialized")
		return
	}

	file, err := os.Open(homeDir.PageImagePath(docID, pageNum))
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("page %d not found", pageNum))
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	http.ServeContent(w, r, fmt.Sprintf("page_%04d.png", pageNum), fileInfo.ModTime(), file)
}

func (e *PageImageEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}

// PageRegionsResponse groups a page's regions by provider.
type PageRegionsResponse struct {
	DocumentID string                     `json:"document_id"`
	Page       int                        `json:"page"`
	Providers  map[string][]region.Region `json:"providers"`
}

// PageRegionsEndpoint handles GET /api/documents/{document_id}/pages/{page_num}/regions.
type PageRegionsEndpoint struct{}

var _ api.Endpoint = (*PageRegionsEndpoint)(nil)

func (e *PageRegionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{document_id}/pages/{page_num}/regions", e.handler
}

func (e *PageRegionsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get page regions
//	@Description	Get the stored regions for one page, grouped by provider
//	@Tags			pages
//	@Produce		json
//	@Param			document_id	path		string	true	"Document ID"
//	@Param			page_num	path		int		true	"Page number (1-indexed)"
//	@Param			providers	query		string	false	"Comma-separated provider filter"
//	@Success		200			{object}	PageRegionsResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/documents/{document_id}/pages/{page_num}/regions [get]
func (e *PageRegionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	docID, pageNum, ok := pageParams(w, r)
	if !ok {
		return
	}
	pr, ok := pageRegions(w, r, docID, pageNum)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PageRegionsResponse{
		DocumentID: docID,
		Page:       pageNum,
		Providers:  pr.ByProvider,
	})
}

func (e *PageRegionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "regions <document-id> <page>",
		Short: "Get stored regions for a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PageRegionsResponse
			path := fmt.Sprintf("/api/documents/%s/pages/%s/regions", args[0], args[1])
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// IngestRegionsResponse reports how many regions were accepted.
type IngestRegionsResponse struct {
	Source   string `json:"source"`
	Accepted int    `json:"accepted"`
	Dropped  int    `json:"dropped"`
}

// IngestRegionsEndpoint handles POST /api/documents/{document_id}/pages/{page_num}/regions.
// The body is a provider region payload; coordinates may be pixels
// (page dimensions included) or already unit-square.
type IngestRegionsEndpoint struct{}

var _ api.Endpoint = (*IngestRegionsEndpoint)(nil)

func (e *IngestRegionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{document_id}/pages/{page_num}/regions", e.handler
}

func (e *IngestRegionsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Submit page regions
//	@Description	Validate and store one provider's regions for a page, replacing its previous submission for that page
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			document_id	path		string	true	"Document ID"
//	@Param			page_num	path		int		true	"Page number (1-indexed)"
//	@Success		200			{object}	IngestRegionsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/documents/{document_id}/pages/{page_num}/regions [post]
func (e *IngestRegionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	docID, pageNum, ok := pageParams(w, r)
	if !ok {
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

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 32<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err))
		return
	}

	payload, err := region.ParsePayload(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Source == "" {
		writeError(w, http.StatusBadRequest, "payload source is required")
		return
	}

	normalized, dropped, err := payload.Normalized()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	accepted := region.Ingest(normalized, payload.Source, pageNum)

	// Replace this provider's regions for the page, keep other pages.
	existing, err := st.GetRegions(docID, payload.Source)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	kept := make([]region.Region, 0, len(existing)+len(accepted))
	for _, reg := range existing {
		if reg.Page != pageNum {
			kept = append(kept, reg)
		}
	}
	kept = append(kept, accepted...)
	if err := st.SaveRegions(docID, payload.Source, kept); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if eng := svcctx.EngineFrom(r.Context()); eng != nil {
		eng.Invalidate(docID)
	}

	writeJSON(w, http.StatusOK, IngestRegionsResponse{
		Source:   payload.Source,
		Accepted: len(accepted),
		Dropped:  len(dropped),
	})
}

func (e *IngestRegionsEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}

// SelectRequest is a marquee or point query over a page.
type SelectRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// SelectResponse lists the regions hit by a selection query.
type SelectResponse struct {
	Regions []region.Region `json:"regions"`
}

// SelectEndpoint handles POST /api/documents/{document_id}/pages/{page_num}/select.
type SelectEndpoint struct{}

var _ api.Endpoint = (*SelectEndpoint)(nil)

func (e *SelectEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{document_id}/pages/{page_num}/select", e.handler
}

func (e *SelectEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Select regions
//	@Description	Hit-test a marquee rectangle or click point against a page's regions
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			document_id	path		string			true	"Document ID"
//	@Param			page_num	path		int				true	"Page number (1-indexed)"
//	@Param			query		body		SelectRequest	true	"Selection rectangle in unit coordinates; zero width and height means a point"
//	@Success		200			{object}	SelectResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/documents/{document_id}/pages/{page_num}/select [post]
func (e *SelectEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	docID, pageNum, ok := pageParams(w, r)
	if !ok {
		return
	}

	var req SelectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pr, ok := pageRegions(w, r, docID, pageNum)
	if !ok {
		return
	}

	names := make([]string, 0, len(pr.ByProvider))
	for name := range pr.ByProvider {
		names = append(names, name)
	}
	sort.Strings(names)
	var all []region.Region
	for _, name := range names {
		all = append(all, pr.ByProvider[name]...)
	}
	hits := engine.Select(all, geometry.Rect{X: req.X, Y: req.Y, W: req.W, H: req.H})

	writeJSON(w, http.StatusOK, SelectResponse{Regions: hits})
}

func (e *SelectEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}
