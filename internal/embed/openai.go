package embed

import (
	"context"
	"fmt"
	"strings"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// openAIEmbedRequest is the /embeddings request body
type openAIEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// openAIEmbedResponse is the /embeddings response body
type openAIEmbedResponse struct {
	Data  []openAIEmbedding `json:"data"`
	Model string            `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// openAIEmbedding is one item of the response; Index refers to the input.
type openAIEmbedding struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// OpenAIEmbedder talks to the OpenAI embeddings API or any server that
// speaks the same protocol (LM Studio, vLLM, LocalAI, Together, ...).
type OpenAIEmbedder struct {
	name    string
	http    *httpBackend
	batch   batcher
	baseURL string
	model   string
	dims    int

	// requestDims asks text-embedding-3 models for shortened vectors.
	requestDims bool
}

// Verify interface implementation at compile time
var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder for ProviderOpenAI or
// ProviderCompatible. OpenAI requires an API key; compatible requires an
// endpoint and a model.
func NewOpenAIEmbedder(ctx context.Context, cfg Config) (*OpenAIEmbedder, error) {
	if cfg.Provider != ProviderCompatible {
		cfg.Provider = ProviderOpenAI
	}
	cfg = cfg.withDefaults()
	name := string(cfg.Provider)

	switch {
	case cfg.Provider == ProviderOpenAI && cfg.APIKey == "":
		return nil, dmerrors.ProviderUnavailable(name, "no API key configured", nil).
			WithRetryable(false).
			WithSuggestion("Set OPENAI_API_KEY or pass --api-key")
	case cfg.Provider == ProviderCompatible && cfg.Endpoint == "":
		return nil, dmerrors.ProviderUnavailable(name, "no endpoint configured", nil).
			WithRetryable(false).
			WithSuggestion("Pass --endpoint with the server's OpenAI-compatible base URL, e.g. http://localhost:1234/v1")
	case cfg.Provider == ProviderCompatible && cfg.Model == "":
		return nil, dmerrors.ProviderUnavailable(name, "no model configured", nil).
			WithRetryable(false).
			WithSuggestion("Pass --model with the embedding model served by the endpoint")
	}

	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}

	e := &OpenAIEmbedder{
		name:    name,
		http:    newHTTPBackend(name, cfg, headers),
		batch:   batcher{provider: name, batchSize: cfg.BatchSize, concurrency: cfg.Concurrency},
		baseURL: cfg.Endpoint,
		model:   cfg.Model,
		dims:    cfg.Dimensions,
	}

	if e.dims > 0 && cfg.Provider == ProviderOpenAI && strings.HasPrefix(e.model, "text-embedding-3") {
		if known, ok := KnownDimensions(ProviderOpenAI, e.model); ok && e.dims != known {
			e.requestDims = true
		}
	}

	if !cfg.SkipHealthCheck && !e.Available(ctx) {
		e.http.close()
		return nil, dmerrors.ProviderUnavailable(name,
			fmt.Sprintf("cannot reach %s/models", e.baseURL), nil).
			WithSuggestion("Check the endpoint URL, the API key and network access")
	}

	if e.dims == 0 {
		if dims, ok := KnownDimensions(cfg.Provider, e.model); ok {
			e.dims = dims
		}
	}
	if e.dims == 0 {
		dims, err := probeDimensions(ctx, e.batch, e.send)
		if err != nil {
			e.http.close()
			return nil, err
		}
		e.dims = dims
	}

	return e, nil
}

// send embeds one sub-batch. The API may return items in any order, so they
// are placed by their index field.
func (e *OpenAIEmbedder) send(ctx context.Context, texts []string) ([][]float32, error) {
	req := openAIEmbedRequest{Model: e.model, Input: texts}
	if e.requestDims {
		req.Dimensions = e.dims
	}

	var resp openAIEmbedResponse
	if err := e.http.postJSON(ctx, e.baseURL+"/embeddings", req, &resp); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) || out[item.Index] != nil {
			return nil, dmerrors.ProviderUnavailable(e.name,
				fmt.Sprintf("response item has invalid index %d", item.Index), nil).
				WithRetryable(false)
		}
		out[item.Index] = item.Embedding
	}
	for i, vec := range out {
		if vec == nil {
			return nil, dmerrors.ProviderUnavailable(e.name,
				fmt.Sprintf("response is missing the embedding for input %d", i), nil).
				WithRetryable(false)
		}
	}
	return out, nil
}

// Embed generates embedding for a single text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, preserving order
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.batch.embed(ctx, texts, e.dims, e.send)
}

// Dimensions returns the embedding dimension
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Available checks that the endpoint answers GET /models.
func (e *OpenAIEmbedder) Available(ctx context.Context) bool {
	if e.http.isClosed() {
		return false
	}
	checkCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()
	return e.http.get(checkCtx, e.baseURL+"/models", nil) == nil
}

// Close releases resources
func (e *OpenAIEmbedder) Close() error {
	e.http.close()
	return nil
}
