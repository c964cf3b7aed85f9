// Package search answers natural-language queries against one base:
// the query is embedded, the store returns its nearest chunks, and the
// results are rendered for agents and the CLI.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/docsmcp/internal/embed"
	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/store"
)

// Result limits.
const (
	DefaultLimit = 5
	MaxLimit     = 50
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Result is one ranked chunk.
type Result struct {
	Path      string  // Document path relative to the base root
	Title     string  // Document title
	Heading   string  // Nearest heading above the chunk, if any
	Content   string  // Chunk text
	StartLine int     // 1-based, inclusive
	EndLine   int     // 1-based, inclusive
	Distance  float64 // Euclidean distance to the query vector
	Score     float64 // 1/(1+Distance), in (0,1]
}

// Percent returns the score as a percentage.
func (r Result) Percent() float64 {
	return r.Score * 100
}

// Results is the answer to one query, best match first.
type Results struct {
	Query    string
	Limit    int
	Items    []Result
	Duration time.Duration
}

// Empty reports whether nothing relevant was found.
func (r *Results) Empty() bool {
	return r == nil || len(r.Items) == 0
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service is the read path of a base.
type Service struct {
	store    *store.Store
	embedder embed.Embedder
	root     string
	logger   *slog.Logger
}

// New creates a Service over st, embedding queries with emb. root is the
// base's docs directory; ReadFile never serves anything outside it.
func New(st *store.Store, emb embed.Embedder, root string, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: store is required", ErrNilDependency)
	}
	if emb == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if root == "" {
		return nil, dmerrors.ConfigError("base has no docs directory", nil)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeInvalidPath, "invalid docs directory "+root, err)
	}

	s := &Service{
		store:    st,
		embedder: emb,
		root:     abs,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute docs directory.
func (s *Service) Root() string {
	return s.root
}

// Search embeds query and returns up to k nearest chunks. k <= 0 means
// DefaultLimit; larger values are capped at MaxLimit. An index with no
// matching chunks yields empty Results, not an error.
func (s *Service) Search(ctx context.Context, query string, k int) (*Results, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, dmerrors.New(dmerrors.ErrCodeQueryEmpty, "query cannot be empty", nil).
			WithSuggestion("Describe what you are looking for in a few words")
	}
	k = ClampLimit(k)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, embedFailure(s.embedder.ModelName(), err)
	}
	if len(vec) != s.store.Dimensions() {
		return nil, dmerrors.DimensionMismatch(s.store.Dimensions(), len(vec)).
			WithSuggestion("The base was built with another model; run 'docsmcp init' again or switch the base back to its model")
	}

	hits, err := s.store.Search(ctx, vec, k)
	if err != nil {
		var de *dmerrors.DocsError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dmerrors.New(dmerrors.ErrCodeSearchFailed, "vector search failed", err)
	}

	res := &Results{
		Query: query,
		Limit: k,
		Items: make([]Result, 0, len(hits)),
	}
	for _, h := range hits {
		res.Items = append(res.Items, Result{
			Path:      h.Path,
			Title:     h.Title,
			Heading:   h.Heading,
			Content:   h.Content,
			StartLine: h.StartLine,
			EndLine:   h.EndLine,
			Distance:  h.Distance,
			Score:     h.Score,
		})
	}
	res.Duration = time.Since(start)

	s.logger.Debug("search_complete",
		slog.String("query", query),
		slog.Int("limit", k),
		slog.Int("results", len(res.Items)),
		slog.Int64("duration_ms", res.Duration.Milliseconds()))
	return res, nil
}

// ClampLimit maps a requested result count onto 1..MaxLimit, with zero or
// negative meaning DefaultLimit.
func ClampLimit(k int) int {
	switch {
	case k <= 0:
		return DefaultLimit
	case k > MaxLimit:
		return MaxLimit
	default:
		return k
	}
}

// embedFailure keeps structured provider errors and wraps anything else.
func embedFailure(model string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var de *dmerrors.DocsError
	if errors.As(err, &de) {
		return err
	}
	return dmerrors.New(dmerrors.ErrCodeEmbeddingFailed, "failed to embed query with "+model, err).
		WithRetryable(true)
}
