package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/blocklens/blocklens/internal/rasterize"
	"github.com/blocklens/blocklens/internal/region"
)

const openAIDefaultModel = "gpt-4o-mini"

// regionPrompt asks the model for the same payload format providers
// submit over the API, in pixel coordinates of the supplied image.
const regionPrompt = `Identify every block of text in this page image.
Return ONLY valid JSON (no markdown, no commentary) of the form:
{"source":"%s","page_width":%d,"page_height":%d,"regions":[{"kind":"block","bbox":{"x":...,"y":...,"w":...,"h":...},"text":"..."}]}
Coordinates are pixels with the origin at the top-left. Include every
paragraph, heading, caption, and table cell as its own block.`

// OpenAIConfig holds configuration for the OpenAI vision extractor.
type OpenAIConfig struct {
	Name       string
	Model      string
	APIKey     string
	MaxRetries int           // Retry attempts for SDK transport
	Timeout    time.Duration // HTTP timeout
	BaseURL    string        // Optional (tests)
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIExtractor locates text blocks with an OpenAI vision model.
type OpenAIExtractor struct {
	name   string
	model  string
	client openai.Client
}

// NewOpenAIExtractor creates an OpenAI-backed extractor.
func NewOpenAIExtractor(cfg OpenAIConfig) *OpenAIExtractor {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIExtractor{
		name:   cfg.Name,
		model:  cfg.Model,
		client: openai.NewClient(opts...),
	}
}

// Name returns the engine identifier.
func (e *OpenAIExtractor) Name() string {
	return e.name
}

// ExtractPage sends the page image to the model and parses the
// returned region payload.
func (e *OpenAIExtractor) ExtractPage(ctx context.Context, imagePath string, page int) ([]region.Region, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read page image: %w", err)
	}
	w, h, err := rasterize.ImageSize(imagePath)
	if err != nil {
		return nil, err
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	prompt := fmt.Sprintf(regionPrompt, e.name, int(w), int(h))

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("vision response had no choices")
	}

	raw := recoverJSON(resp.Choices[0].Message.Content)
	if raw == "" {
		return nil, fmt.Errorf("vision response contained no JSON")
	}

	payload, err := region.ParsePayload([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("vision payload invalid: %w", err)
	}
	// The model is told to answer in pixels; fill dimensions in case
	// it omitted them.
	if payload.PageWidth == 0 {
		payload.PageWidth = w
	}
	if payload.PageHeight == 0 {
		payload.PageHeight = h
	}

	normalized, _, err := payload.Normalized()
	if err != nil {
		return nil, err
	}
	return region.Ingest(normalized, e.name, page), nil
}

// recoverJSON pulls a JSON document out of model output, tolerating
// markdown code fences and surrounding prose.
func recoverJSON(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) >= 2 {
			lines = lines[1:]
			if strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			content = strings.TrimSpace(strings.Join(lines, "\n"))
		}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return ""
	}
	return content[start : end+1]
}
