package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/blocklens/blocklens/internal/api"
	"github.com/blocklens/blocklens/internal/svcctx"
)

// ExtractorsResponse lists the registered extraction engines.
type ExtractorsResponse struct {
	Extractors []string `json:"extractors"`
}

// ListExtractorsEndpoint handles GET /api/extractors.
type ListExtractorsEndpoint struct{}

var _ api.Endpoint = (*ListExtractorsEndpoint)(nil)

func (e *ListExtractorsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/extractors", e.handler
}

func (e *ListExtractorsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List extractors
//	@Description	List the registered extraction engines available for runs
//	@Tags			extractors
//	@Produce		json
//	@Success		200	{object}	ExtractorsResponse
//	@Router			/api/extractors [get]
func (e *ListExtractorsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	registry := svcctx.ExtractorsFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusServiceUnavailable, "extractor registry not initialized")
		return
	}
	writeJSON(w, http.StatusOK, ExtractorsResponse{Extractors: registry.List()})
}

func (e *ListExtractorsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "extractors",
		Short: "List registered extractors",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ExtractorsResponse
			if err := client.Get(cmd.Context(), "/api/extractors", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
