package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderOllama uses a local or remote Ollama server
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI uses the OpenAI embeddings API
	ProviderOpenAI ProviderType = "openai"

	// ProviderCompatible uses any server speaking the OpenAI embeddings API
	ProviderCompatible ProviderType = "compatible"

	// ProviderStatic uses hash-based embeddings (offline, no semantic quality)
	ProviderStatic ProviderType = "static"
)

// Default endpoints and models per provider.
const (
	DefaultOllamaHost   = "http://localhost:11434"
	DefaultOpenAIURL    = "https://api.openai.com/v1"
	DefaultOllamaModel  = "nomic-embed-text"
	DefaultOpenAIModel  = "text-embedding-3-small"
	DefaultStaticModel  = "static"
	defaultPoolSize     = 4
	maxErrorBodyPreview = 512
)

// Providers lists the provider names accepted by ParseProvider.
func Providers() []ProviderType {
	return []ProviderType{ProviderOllama, ProviderOpenAI, ProviderCompatible, ProviderStatic}
}

// ParseProvider converts a user-supplied name into a ProviderType.
func ParseProvider(name string) (ProviderType, error) {
	p := ProviderType(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers() {
		if p == known {
			return p, nil
		}
	}
	return "", dmerrors.New(dmerrors.ErrCodeUnknownProvider,
		fmt.Sprintf("unknown embedding provider %q", name), nil).
		WithSuggestion("Use one of: ollama, openai, compatible, static")
}

// DefaultModel returns the model used when none is configured.
// The compatible provider has no sensible default.
func DefaultModel(p ProviderType) string {
	switch p {
	case ProviderOllama:
		return DefaultOllamaModel
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderStatic:
		return DefaultStaticModel
	default:
		return ""
	}
}

// Config selects and tunes an embedding provider.
type Config struct {
	// Provider picks the implementation
	Provider ProviderType

	// Model is the provider's model identifier (default per provider)
	Model string

	// Endpoint is the Ollama host or the OpenAI-compatible base URL
	Endpoint string

	// APIKey is sent as a Bearer token (openai, optional for compatible)
	APIKey string

	// Dimensions fixes the vector size (0 = known-model table, then probe)
	Dimensions int

	// BatchSize is the number of texts per provider request (default: 32)
	BatchSize int

	// Concurrency bounds in-flight sub-batches (default: 4)
	Concurrency int

	// Timeout applies to each HTTP request (default: 60s)
	Timeout time.Duration

	// MaxRetries for transient failures (default: 3)
	MaxRetries int

	// RetryDelay is the first backoff delay (default: 250ms)
	RetryDelay time.Duration

	// CacheSize wraps the embedder in an LRU cache when positive
	CacheSize int

	// SkipHealthCheck skips the reachability probe at construction
	SkipHealthCheck bool
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}
	if c.Endpoint == "" {
		switch c.Provider {
		case ProviderOllama:
			c.Endpoint = DefaultOllamaHost
		case ProviderOpenAI:
			c.Endpoint = DefaultOpenAIURL
		}
	}
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchSize > MaxBatchSize {
		c.BatchSize = MaxBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	return c
}

// retryConfig derives the backoff schedule for provider requests.
func (c Config) retryConfig() dmerrors.RetryConfig {
	return dmerrors.RetryConfig{
		MaxRetries:   c.MaxRetries,
		InitialDelay: c.RetryDelay,
		MaxDelay:     c.RetryDelay * 16,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// NewEmbedder creates the embedder selected by cfg.Provider.
// Remote providers are health-checked unless cfg.SkipHealthCheck is set;
// an unreachable or misconfigured backend yields ErrProviderUnavailable.
func NewEmbedder(ctx context.Context, cfg Config) (Embedder, error) {
	provider, err := ParseProvider(string(cfg.Provider))
	if err != nil {
		return nil, err
	}
	cfg.Provider = provider

	var embedder Embedder
	switch cfg.Provider {
	case ProviderOllama:
		embedder, err = NewOllamaEmbedder(ctx, cfg)
	case ProviderOpenAI, ProviderCompatible:
		embedder, err = NewOpenAIEmbedder(ctx, cfg)
	case ProviderStatic:
		embedder = NewStaticEmbedder(cfg.Dimensions)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("embedder_created",
		slog.String("provider", string(cfg.Provider)),
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()))

	if cfg.CacheSize > 0 {
		embedder = NewCachedEmbedder(embedder, cfg.CacheSize)
	}

	return embedder, nil
}
