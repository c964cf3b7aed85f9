package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsmcp/internal/embed"
	"github.com/Aman-CERP/docsmcp/internal/store"
)

const testDims = 4

// fakeEmbedder maps known texts to fixed vectors.
type fakeEmbedder struct {
	dims    int
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                { return f.dims }
func (f *fakeEmbedder) ModelName() string              { return "fake" }
func (f *fakeEmbedder) Available(context.Context) bool { return f.err == nil }
func (f *fakeEmbedder) Close() error                   { return nil }

var _ embed.Embedder = (*fakeEmbedder)(nil)

// fixture is a docs root with an index of three single-chunk documents.
type fixture struct {
	root  string
	store *store.Store
	emb   *fakeEmbedder
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, root, "install.md", "# Install\n\nRun the installer.\n")
	writeFile(t, root, "guides/config.md", "# Config\n\nEdit config.yaml.\n")
	writeFile(t, root, "guides/deploy.md", "# Deploy\n\nShip it.\n")

	st, err := store.Create(ctx, filepath.Join(t.TempDir(), "docs.db"), testDims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	docs := []struct {
		path, title, heading, content string
		vec                           []float32
	}{
		{"install.md", "Install", "Install", "Run the installer.", []float32{1, 0, 0, 0}},
		{"guides/config.md", "Config", "Config", "Edit config.yaml.", []float32{0, 1, 0, 0}},
		{"guides/deploy.md", "Deploy", "", "Ship it.", []float32{0, 0, 1, 0}},
	}
	for _, d := range docs {
		_, err := st.ReplaceDocument(ctx,
			store.DocumentInput{Path: d.path, Title: d.title, ModTime: time.Unix(1700000000, 0), Hash: "h-" + d.path},
			[]store.ChunkInput{{Content: d.content, ChunkIndex: 0, StartLine: 3, EndLine: 3, Heading: d.heading}},
			[][]float32{d.vec})
		require.NoError(t, err)
	}

	emb := &fakeEmbedder{dims: testDims, vectors: map[string][]float32{
		"how do I install": {0.9, 0.1, 0, 0},
		"configuration":    {0, 1, 0, 0},
	}}
	svc, err := New(st, emb, root)
	require.NoError(t, err)

	return &fixture{root: root, store: st, emb: emb, svc: svc}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
