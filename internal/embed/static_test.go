package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder(0)

	a, err := e.Embed(context.Background(), "Install the CLI with brew")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "Install the CLI with brew")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, StaticDimensions)
	assert.InDelta(t, 1.0, vectorMagnitude(a), 1e-5)
}

func TestStaticEmbedder_RelatedTextIsCloser(t *testing.T) {
	// Given: a query and two candidate passages
	e := NewStaticEmbedder(256)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "configure authentication tokens")
	related, _ := e.Embed(ctx, "Authentication is configured with API tokens in the settings file")
	unrelated, _ := e.Embed(ctx, "The changelog lists release dates for every version")

	// Then: lexical overlap wins
	assert.Greater(t, cosineSimilarity(query, related), cosineSimilarity(query, unrelated))
}

func TestStaticEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(32)

	vec, err := e.Embed(context.Background(), "   ")

	require.NoError(t, err)
	assert.Equal(t, make([]float32, 32), vec)
}

func TestStaticEmbedder_BatchAndClose(t *testing.T) {
	e := NewStaticEmbedder(16)

	vecs, err := e.EmbedBatch(context.Background(), []string{"a b", "c d"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)

	empty, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))
	_, err = e.Embed(context.Background(), "closed")
	assert.Error(t, err)
}

func TestTokenize_SplitsIdentifiers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"getUserName", []string{"get", "user", "name"}},
		{"max_chunk_size", []string{"max", "chunk", "size"}},
		{"HTTPServer config", []string{"http", "server", "config"}},
		{"café au lait", []string{"café", "au", "lait"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenize(tt.in))
		})
	}
}

func TestExtractNgrams_CountsRunes(t *testing.T) {
	assert.Equal(t, []string{"abc", "bcd"}, extractNgrams("abcd", 3))
	assert.Equal(t, []string{"éàü"}, extractNgrams("éàü", 3))
	assert.Empty(t, extractNgrams("ab", 3))
}
