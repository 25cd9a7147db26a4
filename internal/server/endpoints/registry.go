package endpoints

import (
	"github.com/blocklens/blocklens/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Document endpoints
		&UploadDocumentEndpoint{},
		&ListDocumentsEndpoint{},
		&GetDocumentEndpoint{},
		&DeleteDocumentEndpoint{},

		// Page endpoints
		&PageImageEndpoint{},
		&PageRegionsEndpoint{},
		&IngestRegionsEndpoint{},
		&SelectEndpoint{},

		// Engine endpoints
		&ReferenceEndpoint{},
		&CoverageEndpoint{},
		&DocumentCoverageEndpoint{},
		&MergeEndpoint{},
		&ConsolidateEndpoint{},

		// Run endpoints
		&CreateRunEndpoint{},
		&ListRunsEndpoint{},
		&GetRunEndpoint{},
		&RunReportEndpoint{},

		// Extractor endpoints
		&ListExtractorsEndpoint{},

		// Settings endpoints
		&ListSettingsEndpoint{},
		&GetSettingEndpoint{},
		&UpdateSettingEndpoint{},
		&ResetSettingEndpoint{},

		// Docs and frontend
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
		&StaticEndpoint{},
	}
}
