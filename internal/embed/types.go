// Package embed turns text into vectors through a pluggable embedding
// provider: a local Ollama server, the OpenAI API, any OpenAI-compatible
// endpoint, or an offline hash embedder.
package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants
const (
	// MinBatchSize is the minimum allowed batch size
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size (prevents memory exhaustion)
	MaxBatchSize = 256

	// DefaultBatchSize is the number of texts sent in one provider request
	DefaultBatchSize = 32

	// DefaultConcurrency bounds how many sub-batches are in flight at once
	DefaultConcurrency = 4

	// DefaultTimeout applies to each HTTP request, not to a whole batch
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for transient failures
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the first backoff delay; it doubles per attempt
	DefaultRetryDelay = 250 * time.Millisecond

	// HealthCheckTimeout bounds the reachability probe made at construction
	HealthCheckTimeout = 5 * time.Second
)

// StaticDimensions is the default embedding dimension for the static embedder
const StaticDimensions = 256

// Embedder generates vector embeddings for text
type Embedder interface {
	// Embed generates embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// The result has the same length and order as texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	// Close releases resources
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v // Return as-is if zero vector
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
