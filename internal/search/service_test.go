package search

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/store"
)

func TestNew_RequiresDependencies(t *testing.T) {
	st, err := store.Create(context.Background(), filepath.Join(t.TempDir(), "d.db"), testDims)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	emb := &fakeEmbedder{dims: testDims}

	_, err = New(nil, emb, "/docs")
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = New(st, nil, "/docs")
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = New(st, emb, "")
	assert.Equal(t, dmerrors.ErrCodeConfigInvalid, dmerrors.GetCode(err))
}

func TestSearch_RanksNearestFirst(t *testing.T) {
	// Given: three orthogonal chunks
	f := newFixture(t)

	// When: querying close to the first one
	res, err := f.svc.Search(context.Background(), "how do I install", 2)

	// Then: the install chunk wins and only k results come back
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "install.md", res.Items[0].Path)
	assert.Equal(t, "guides/config.md", res.Items[1].Path)
	assert.Greater(t, res.Items[0].Score, res.Items[1].Score)
	assert.Equal(t, "Install", res.Items[0].Heading)
	assert.Equal(t, 3, res.Items[0].StartLine)
	assert.Equal(t, 2, res.Limit)
}

func TestSearch_ExactMatchScoresOne(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Search(context.Background(), "configuration", 1)

	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "guides/config.md", res.Items[0].Path)
	assert.InDelta(t, 1.0, res.Items[0].Score, 1e-9)
	assert.InDelta(t, 100.0, res.Items[0].Percent(), 1e-9)
}

func TestSearch_Limits(t *testing.T) {
	tests := []struct {
		name string
		k    int
		want int
	}{
		{"zero means default", 0, DefaultLimit},
		{"negative means default", -3, DefaultLimit},
		{"within range", 7, 7},
		{"capped", 500, MaxLimit},
		{"minimum", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampLimit(tt.k))
		})
	}
}

func TestSearch_DefaultLimitReturnsEverythingInSmallIndex(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Search(context.Background(), "  how do I install  ", 0)

	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
	assert.Equal(t, "how do I install", res.Query)
	for i := 1; i < len(res.Items); i++ {
		assert.GreaterOrEqual(t, res.Items[i-1].Score, res.Items[i].Score)
	}
}

func TestSearch_EmptyIndexIsNotAnError(t *testing.T) {
	st, err := store.Create(context.Background(), filepath.Join(t.TempDir(), "d.db"), testDims)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	svc, err := New(st, &fakeEmbedder{dims: testDims, vectors: map[string][]float32{"q": {1, 0, 0, 0}}}, t.TempDir())
	require.NoError(t, err)

	res, err := svc.Search(context.Background(), "q", 5)

	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestSearch_RejectsBlankQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Search(context.Background(), "   ", 5)

	assert.Equal(t, dmerrors.ErrCodeQueryEmpty, dmerrors.GetCode(err))
}

func TestSearch_ProviderFailureIsReported(t *testing.T) {
	tests := []struct {
		name     string
		embedErr error
		wantCode string
	}{
		{
			name:     "structured provider error kept",
			embedErr: dmerrors.ProviderUnavailable("ollama", "connection refused", nil),
			wantCode: dmerrors.ErrCodeProviderUnavailable,
		},
		{
			name:     "plain error wrapped",
			embedErr: errors.New("boom"),
			wantCode: dmerrors.ErrCodeEmbeddingFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.emb.err = tt.embedErr

			res, err := f.svc.Search(context.Background(), "how do I install", 5)

			assert.Nil(t, res)
			assert.Equal(t, tt.wantCode, dmerrors.GetCode(err))
		})
	}
}

func TestSearch_CancelledContextPassesThrough(t *testing.T) {
	f := newFixture(t)
	f.emb.err = context.Canceled

	_, err := f.svc.Search(context.Background(), "how do I install", 5)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	f := newFixture(t)
	f.emb.vectors["short"] = []float32{1, 0}

	_, err := f.svc.Search(context.Background(), "short", 5)

	assert.True(t, errors.Is(err, dmerrors.ErrDimensionMismatch))
}
