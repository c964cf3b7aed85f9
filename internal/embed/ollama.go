package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// ollamaEmbedRequest is the Ollama /api/embed request
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the Ollama /api/embed response
type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// ollamaTagsResponse is the Ollama /api/tags response
type ollamaTagsResponse struct {
	Models []ollamaModelInfo `json:"models"`
}

// ollamaModelInfo describes an installed model
type ollamaModelInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// OllamaEmbedder generates embeddings using Ollama's HTTP API
type OllamaEmbedder struct {
	http  *httpBackend
	batch batcher
	host  string
	model string
	dims  int
}

// Verify interface implementation at compile time
var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an Ollama embedder. Unless SkipHealthCheck is
// set it verifies the server answers and has the model pulled. Dimensions
// come from cfg, the known-model table, or a one-text probe.
func NewOllamaEmbedder(ctx context.Context, cfg Config) (*OllamaEmbedder, error) {
	cfg.Provider = ProviderOllama
	cfg = cfg.withDefaults()

	e := &OllamaEmbedder{
		http:  newHTTPBackend(string(ProviderOllama), cfg, nil),
		batch: batcher{provider: string(ProviderOllama), batchSize: cfg.BatchSize, concurrency: cfg.Concurrency},
		host:  cfg.Endpoint,
		model: cfg.Model,
		dims:  cfg.Dimensions,
	}

	if !cfg.SkipHealthCheck {
		if err := e.checkModel(ctx); err != nil {
			e.http.close()
			return nil, err
		}
	}

	if e.dims == 0 {
		if dims, ok := KnownDimensions(ProviderOllama, e.model); ok {
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

// listModels gets installed models from Ollama
func (e *OllamaEmbedder) listModels(ctx context.Context) ([]ollamaModelInfo, error) {
	checkCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	var tags ollamaTagsResponse
	if err := e.http.get(checkCtx, e.host+"/api/tags", &tags); err != nil {
		return nil, err
	}
	return tags.Models, nil
}

// checkModel fails with ProviderUnavailable when the server is down or
// the model is not installed.
func (e *OllamaEmbedder) checkModel(ctx context.Context) error {
	models, err := e.listModels(ctx)
	if err != nil {
		var de *dmerrors.DocsError
		if errors.As(err, &de) && de.Suggestion == "" {
			de.WithSuggestion(fmt.Sprintf("Start Ollama with 'ollama serve' (expected at %s)", e.host))
		}
		return err
	}
	if !hasModel(models, e.model) {
		return dmerrors.ProviderUnavailable(string(ProviderOllama),
			fmt.Sprintf("model %q is not installed", e.model), nil).
			WithRetryable(false).
			WithSuggestion(fmt.Sprintf("Run 'ollama pull %s'", e.model))
	}
	return nil
}

// hasModel matches "name" against installed "name:tag" entries.
func hasModel(models []ollamaModelInfo, model string) bool {
	want := strings.ToLower(model)
	for _, m := range models {
		name := strings.ToLower(m.Name)
		if name == want || strings.TrimSuffix(name, ":latest") == want {
			return true
		}
	}
	return false
}

// send embeds one sub-batch.
func (e *OllamaEmbedder) send(ctx context.Context, texts []string) ([][]float32, error) {
	var resp ollamaEmbedResponse
	req := ollamaEmbedRequest{Model: e.model, Input: texts}
	if err := e.http.postJSON(ctx, e.host+"/api/embed", req, &resp); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

// Embed generates embedding for a single text
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, preserving order
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.batch.embed(ctx, texts, e.dims, e.send)
}

// Dimensions returns the embedding dimension
func (e *OllamaEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier
func (e *OllamaEmbedder) ModelName() string {
	return e.model
}

// Available checks if Ollama is running and the model is installed
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	if e.http.isClosed() {
		return false
	}
	models, err := e.listModels(ctx)
	return err == nil && hasModel(models, e.model)
}

// Close releases resources
func (e *OllamaEmbedder) Close() error {
	e.http.close()
	return nil
}
