package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// seedVectors stores one single-chunk document per vector, named by index.
func seedVectors(t *testing.T, s *Store, vectors map[string][]float32) {
	t.Helper()
	ctx := context.Background()
	for path, vec := range vectors {
		_, err := s.ReplaceDocument(ctx, DocumentInput{Path: path, Hash: path},
			[]ChunkInput{{Content: "content of " + path, StartLine: 1, EndLine: 3, Heading: "H"}},
			[][]float32{vec})
		require.NoError(t, err)
	}
}

func TestSearch_RanksByDistanceWithScore(t *testing.T) {
	// Given: three vectors at distance 0, 1 and 5 from the query
	s := newTestStore(t, 2)
	seedVectors(t, s, map[string][]float32{
		"exact.md": {1, 1},
		"near.md":  {1, 2},
		"far.md":   {4, 5},
	})

	// When: searching for the top two
	results, err := s.Search(context.Background(), []float32{1, 1}, 2)

	// Then: nearest first, score 1/(1+d)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact.md", results[0].Path)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "near.md", results[1].Path)
	assert.InDelta(t, 1, results[1].Distance, 1e-6)
	assert.InDelta(t, 0.5, results[1].Score, 1e-6)

	assert.Equal(t, "content of exact.md", results[0].Content)
	assert.Equal(t, 1, results[0].StartLine)
	assert.Equal(t, 3, results[0].EndLine)
	assert.Equal(t, "H", results[0].Heading)
}

func TestSearch_Ranking(t *testing.T) {
	tests := []struct {
		name      string
		vectors   map[string][]float32
		query     []float32
		k         int
		wantPaths []string
		wantScore []float64
	}{
		{
			name: "unit axes with a query near the first",
			vectors: map[string][]float32{
				"a.md": {1, 0, 0, 0},
				"b.md": {0, 1, 0, 0},
				"c.md": {0, 0, 1, 0},
			},
			query:     []float32{0.9, 0.1, 0, 0},
			k:         2,
			wantPaths: []string{"a.md", "b.md"},
			wantScore: []float64{1 / (1 + math.Sqrt(0.02)), 1 / (1 + math.Sqrt(1.62))},
		},
		{
			name: "query between two documents",
			vectors: map[string][]float32{
				"left.md":  {0, 0, 0, 0},
				"right.md": {4, 0, 0, 0},
				"away.md":  {0, 0, 9, 0},
			},
			query:     []float32{1, 0, 0, 0},
			k:         3,
			wantPaths: []string{"left.md", "right.md", "away.md"},
			wantScore: []float64{0.5, 0.25, 1 / (1 + math.Sqrt(82))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: one chunk per document
			s := newTestStore(t, 4)
			seedVectors(t, s, tt.vectors)

			// When: searching
			results, err := s.Search(context.Background(), tt.query, tt.k)

			// Then: closest first with derived scores
			require.NoError(t, err)
			require.Len(t, results, len(tt.wantPaths))
			for i, r := range results {
				assert.Equal(t, tt.wantPaths[i], r.Path)
				assert.InDelta(t, tt.wantScore[i], r.Score, 1e-4)
			}
		})
	}
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	s := newTestStore(t, 2)
	seedVectors(t, s, map[string][]float32{"a.md": {0, 0}, "b.md": {3, 4}})

	results, err := s.Search(context.Background(), []float32{0, 0}, 50)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, 5, results[1].Distance, 1e-6)
	assert.InDelta(t, 1.0/6.0, results[1].Score, 1e-6)
}

func TestSearch_MatchesBruteForceOrder(t *testing.T) {
	// Given: many vectors
	s := newTestStore(t, 3)
	vectors := map[string][]float32{}
	for i := range 40 {
		f := float32(i)
		vectors[string(rune('a'+i%26))+string(rune('a'+i/26))+".md"] = []float32{f, float32(math.Sin(float64(f))), -f / 2}
	}
	seedVectors(t, s, vectors)
	query := []float32{10.2, 0, -5}

	// When: taking the top 7
	results, err := s.Search(context.Background(), query, 7)
	require.NoError(t, err)

	// Then: distances are ascending and nothing skipped is closer
	require.Len(t, results, 7)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
	returned := map[string]bool{}
	for _, r := range results {
		returned[r.Path] = true
	}
	worst := results[len(results)-1].Distance
	for path, vec := range vectors {
		if !returned[path] {
			assert.GreaterOrEqual(t, l2Distance(query, vec), worst, path)
		}
	}
}

func TestSearch_TiesBreakByInsertionOrder(t *testing.T) {
	s := newTestStore(t, 2)
	ctx := context.Background()
	for _, p := range []string{"first.md", "second.md", "third.md"} {
		_, err := s.ReplaceDocument(ctx, DocumentInput{Path: p}, []ChunkInput{{Content: p}}, [][]float32{{1, 0}})
		require.NoError(t, err)
	}

	results, err := s.Search(ctx, []float32{0, 0}, 2)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first.md", results[0].Path)
	assert.Equal(t, "second.md", results[1].Path)
}

func TestSearch_EmptyIndexIsNotAnError(t *testing.T) {
	s := newTestStore(t, 2)

	results, err := s.Search(context.Background(), []float32{1, 2}, 5)

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestSearch_RejectsBadInput(t *testing.T) {
	s := newTestStore(t, 2)

	_, err := s.Search(context.Background(), []float32{1, 2}, 0)
	assert.True(t, errors.Is(err, dmerrors.ErrInvalidInput))

	_, err = s.Search(context.Background(), []float32{1, 2, 3}, 5)
	assert.True(t, errors.Is(err, dmerrors.ErrDimensionMismatch))
}

func TestVectorEncoding_RoundTrip(t *testing.T) {
	v := []float32{0, -1.5, 3.25, float32(math.Inf(1)), math.SmallestNonzeroFloat32}

	blob := encodeVector(v)

	assert.Len(t, blob, 4*len(v))
	assert.Equal(t, []byte{0, 0, 0xc0, 0xbf}, blob[4:8]) // -1.5 little-endian
	assert.Equal(t, v, decodeVector(blob))
}
