package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsmcp/internal/embed"
	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/index"
	"github.com/Aman-CERP/docsmcp/internal/search"
	"github.com/Aman-CERP/docsmcp/internal/store"
)

func TestPipeline_InitThenSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: an indexed handbook
	f := newFixture(t)
	ctx := context.Background()

	// When: searching for an exact passage
	res, err := f.service.Search(ctx, "Request VPN access from the IT desk before your first day.", 3)

	// Then: the passage's file ranks first with its heading and line span
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	top := res.Items[0]
	assert.Equal(t, "onboarding/laptop.md", top.Path)
	assert.Contains(t, top.Content, "VPN")
	assert.GreaterOrEqual(t, top.StartLine, 1)
	assert.GreaterOrEqual(t, top.EndLine, top.StartLine)
	for i := 1; i < len(res.Items); i++ {
		assert.GreaterOrEqual(t, res.Items[i-1].Score, res.Items[i].Score)
	}
	assert.Contains(t, search.FormatResults(res), "onboarding/laptop.md")
}

func TestPipeline_ExcludedAndNonMarkdownSkipped(t *testing.T) {
	f := newFixture(t)

	docs, err := f.service.ListFiles(context.Background())
	require.NoError(t, err)

	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	assert.ElementsMatch(t, []string{"README.md", "onboarding/laptop.md", "operations/deploy.mdx"}, paths)
}

func TestPipeline_StoreInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stats, err := f.store().GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, stats.Chunks, stats.Embeddings)
	require.NoError(t, f.store().CheckConsistency(ctx))

	meta, err := f.store().Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "handbook", meta[store.MetaName])
	assert.Equal(t, "static", meta[store.MetaProvider])
	assert.Equal(t, "256", meta[store.MetaDimension])
}

func TestPipeline_UpdateAfterEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Given: one file edited, one removed, one added
	writeDocs(t, f.root, map[string]string{
		"README.md":          "# Handbook\n\nStart here. Now with a glossary of internal terms.\n",
		"operations/oncall.md": "# On-call\n\nPages go to the primary first, then the secondary after 15 minutes.\n",
	})
	require.NoError(t, os.Remove(filepath.Join(f.root, "operations", "deploy.mdx")))

	// When: updating
	sum, err := f.indexer.Update(ctx, index.UpdateOptions{})

	// Then: the summary and the index reflect each change
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Added)
	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, 1, sum.Deleted)
	assert.Equal(t, 1, sum.Skipped)

	res, err := f.service.Search(ctx, "Pages go to the primary first, then the secondary after 15 minutes.", 1)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "operations/oncall.md", res.Items[0].Path)

	res, err = f.service.Search(ctx, "Roll back with the previous release tag", 10)
	require.NoError(t, err)
	for _, item := range res.Items {
		assert.NotEqual(t, "operations/deploy.mdx", item.Path)
	}

	// And: a second update is a no-op
	sum, err = f.indexer.Update(ctx, index.UpdateOptions{})
	require.NoError(t, err)
	assert.False(t, sum.Changed())
	assert.Equal(t, 3, sum.Skipped)
}

func TestPipeline_ReopenAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.indexer.Close())

	// Given: the index reopened as serve does
	st, err := store.Open(ctx, f.dbPath)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	emb := embed.NewStaticEmbedder(st.Dimensions())
	svc, err := search.New(st, emb, f.root)
	require.NoError(t, err)

	// When: searching
	res, err := svc.Search(ctx, "compiler toolchain", 5)

	// Then: results survive the reopen
	require.NoError(t, err)
	assert.NotEmpty(t, res.Items)
}

func TestPipeline_DimensionMismatchRefused(t *testing.T) {
	f := newFixture(t)

	other := embed.NewStaticEmbedder(64)
	ix, err := index.New(index.Dependencies{Store: f.store(), Embedder: other, Logger: quietLogger()})
	require.NoError(t, err)

	_, err = ix.Update(context.Background(), index.UpdateOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, dmerrors.ErrDimensionMismatch)
}

func TestPipeline_ReadFileContained(t *testing.T) {
	f := newFixture(t)

	file, err := f.service.ReadFile("onboarding/laptop.md")
	require.NoError(t, err)
	assert.Contains(t, file.Content, "Install tools")

	_, err = f.service.ReadFile("../../etc/passwd")
	require.Error(t, err)
	assert.ErrorIs(t, err, dmerrors.ErrPathTraversal)
}
