package mcp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsmcp/internal/search"
	"github.com/Aman-CERP/docsmcp/internal/store"
)

// MockDocs implements Docs for testing.
type MockDocs struct {
	SearchFn    func(ctx context.Context, query string, k int) (*search.Results, error)
	ReadFileFn  func(rel string) (*search.File, error)
	ListFilesFn func(ctx context.Context) ([]*store.Document, error)
}

func (m *MockDocs) Search(ctx context.Context, query string, k int) (*search.Results, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, query, k)
	}
	return &search.Results{Query: query, Limit: k}, nil
}

func (m *MockDocs) ReadFile(rel string) (*search.File, error) {
	if m.ReadFileFn != nil {
		return m.ReadFileFn(rel)
	}
	return &search.File{Path: rel}, nil
}

func (m *MockDocs) ListFiles(ctx context.Context) ([]*store.Document, error) {
	if m.ListFilesFn != nil {
		return m.ListFilesFn(ctx)
	}
	return nil, nil
}

var _ Docs = (*MockDocs)(nil)

func newTestServer(t *testing.T, docs Docs) *Server {
	t.Helper()
	srv, err := NewServer(docs, "handbook", WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return srv
}

func sampleResults(query string) *search.Results {
	return &search.Results{
		Query: query,
		Items: []search.Result{
			{
				Path:      "guides/setup.md",
				Heading:   "Database",
				Content:   "Run the migrations before starting the server.",
				StartLine: 5,
				EndLine:   7,
				Score:     0.8,
			},
		},
	}
}
