package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsmcp/internal/embed"
	"github.com/Aman-CERP/docsmcp/internal/index"
	"github.com/Aman-CERP/docsmcp/internal/search"
	"github.com/Aman-CERP/docsmcp/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeDocs creates files under root from a path -> content map.
func writeDocs(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// handbook is a small documentation tree.
var handbook = map[string]string{
	"README.md": "# Handbook\n\nStart here. The handbook covers onboarding and operations.\n",
	"onboarding/laptop.md": `# Laptop setup

## Install tools

Install the package manager, then the compiler toolchain and an editor.

## Access

Request VPN access from the IT desk before your first day.
`,
	"operations/deploy.mdx": `---
title: Deploying
---

# Deploying

Deploys run from the main branch. Roll back with the previous release tag.
`,
	"node_modules/pkg/README.md": "# Vendored\n\nShould never be indexed.\n",
	"drafts/idea.txt":            "not markdown",
}

// fixture is an indexed base with its read path.
type fixture struct {
	root    string
	dbPath  string
	emb     embed.Embedder
	indexer *index.Indexer
	service *search.Service
}

// newFixture writes the handbook, runs Init and opens a search service.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	root := t.TempDir()
	writeDocs(t, root, handbook)
	dbPath := filepath.Join(t.TempDir(), "bases", "handbook.db")

	emb := embed.NewStaticEmbedder(0)
	ix, err := index.New(index.Dependencies{Embedder: emb, Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	sum, err := ix.Init(ctx, index.InitOptions{Name: "handbook", Root: root, DBPath: dbPath, Provider: "static"})
	require.NoError(t, err)
	require.Equal(t, 3, sum.Added)

	svc, err := search.New(ix.Store(), emb, root, search.WithLogger(quietLogger()))
	require.NoError(t, err)

	return &fixture{root: root, dbPath: dbPath, emb: emb, indexer: ix, service: svc}
}

func (f *fixture) store() *store.Store {
	return f.indexer.Store()
}
