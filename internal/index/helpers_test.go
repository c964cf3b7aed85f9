package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsmcp/internal/embed"
	"github.com/Aman-CERP/docsmcp/internal/store"
)

const testDims = 32

// mockEmbedder delegates to the static embedder unless embedFn is set.
type mockEmbedder struct {
	dims    int
	calls   atomic.Int32
	embedFn func(ctx context.Context, texts []string) ([][]float32, error)
	static  *embed.StaticEmbedder
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dims: testDims, static: embed.NewStaticEmbedder(testDims)}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.embedFn != nil {
		return m.embedFn(ctx, texts)
	}
	return m.static.EmbedBatch(ctx, texts)
}

func (m *mockEmbedder) Dimensions() int                { return m.dims }
func (m *mockEmbedder) ModelName() string              { return "mock-model" }
func (m *mockEmbedder) Available(context.Context) bool { return true }
func (m *mockEmbedder) Close() error                   { return nil }

var _ embed.Embedder = (*mockEmbedder)(nil)

// writeDoc writes content to root/rel, creating parent directories.
func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// docsTree creates a small documentation tree and returns its root.
func docsTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeDoc(t, root, "README.md", "# Handbook\n\nWelcome to the team handbook.\n")
	writeDoc(t, root, "guides/setup.md", "# Setup\n\nInstall the tools.\n\n## Database\n\nRun the migrations before starting the server.\n")
	writeDoc(t, root, "guides/deploy.mdx", "import Tabs from './tabs'\n\n# Deploy\n\n<Tabs>\ninternal\n</Tabs>\n\nShip it with the release script.\n")
	return root
}

// initBase runs Init into a temporary database and returns the indexer.
func initBase(t *testing.T, root string, emb *mockEmbedder) (*Indexer, *Summary) {
	t.Helper()
	ix, err := New(Dependencies{Embedder: emb})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	sum, err := ix.Init(context.Background(), InitOptions{
		Name:     "handbook",
		Root:     root,
		DBPath:   filepath.Join(t.TempDir(), "handbook.db"),
		Provider: "static",
	})
	require.NoError(t, err)
	return ix, sum
}

func docByPath(t *testing.T, st *store.Store, path string) *store.Document {
	t.Helper()
	doc, err := st.GetDocumentByPath(context.Background(), path)
	require.NoError(t, err)
	return doc
}

func chunkCount(t *testing.T, st *store.Store, path string) int {
	t.Helper()
	doc := docByPath(t, st, path)
	require.NotNil(t, doc, path)
	chunks, err := st.ChunksForDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	return len(chunks)
}

// chunkSnapshot maps each document path to its chunks with row ids
// cleared, so re-inserted rows compare equal when their content does.
func chunkSnapshot(t *testing.T, st *store.Store) map[string][]store.SearchResult {
	t.Helper()
	ctx := context.Background()
	docs, err := st.ListDocuments(ctx)
	require.NoError(t, err)

	snap := make(map[string][]store.SearchResult, len(docs))
	for _, doc := range docs {
		chunks, err := st.ChunksForDocument(ctx, doc.ID)
		require.NoError(t, err)
		for i := range chunks {
			chunks[i].ChunkID = 0
		}
		snap[doc.Path] = chunks
	}
	return snap
}

func containsAny(texts []string, needle string) bool {
	for _, s := range texts {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
