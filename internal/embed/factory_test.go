package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderType
		wantErr bool
	}{
		{"ollama", ProviderOllama, false},
		{" OpenAI ", ProviderOpenAI, false},
		{"compatible", ProviderCompatible, false},
		{"static", ProviderStatic, false},
		{"mlx", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, dmerrors.ErrCodeUnknownProvider, dmerrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKnownDimensions(t *testing.T) {
	tests := []struct {
		provider ProviderType
		model    string
		want     int
		ok       bool
	}{
		{ProviderOllama, "nomic-embed-text", 768, true},
		{ProviderOllama, "nomic-embed-text:latest", 768, true},
		{ProviderOllama, "qwen3-embedding:0.6b", 1024, true},
		{ProviderOpenAI, "text-embedding-3-large", 3072, true},
		{ProviderOpenAI, "text-embedding-ada-002", 1536, true},
		{ProviderCompatible, "text-embedding-3-small", 0, false},
		{ProviderOllama, "mystery", 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider)+"/"+tt.model, func(t *testing.T) {
			got, ok := KnownDimensions(tt.provider, tt.model)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Provider: ProviderOllama, Endpoint: "http://gpu-box:11434/", BatchSize: 10_000}.withDefaults()

	assert.Equal(t, DefaultOllamaModel, cfg.Model)
	assert.Equal(t, "http://gpu-box:11434", cfg.Endpoint)
	assert.Equal(t, MaxBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)

	openai := Config{Provider: ProviderOpenAI}.withDefaults()
	assert.Equal(t, DefaultOpenAIURL, openai.Endpoint)
	assert.Equal(t, DefaultOpenAIModel, openai.Model)

	compatible := Config{Provider: ProviderCompatible}.withDefaults()
	assert.Empty(t, compatible.Endpoint)
	assert.Empty(t, compatible.Model)
}

func TestNewEmbedder_Static(t *testing.T) {
	e, err := NewEmbedder(context.Background(), Config{Provider: ProviderStatic, Dimensions: 64})

	require.NoError(t, err)
	assert.IsType(t, &StaticEmbedder{}, e)
	assert.Equal(t, 64, e.Dimensions())
}

func TestNewEmbedder_CacheWrapsWhenSized(t *testing.T) {
	e, err := NewEmbedder(context.Background(), Config{Provider: ProviderStatic, CacheSize: 10})

	require.NoError(t, err)
	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok)
	assert.IsType(t, &StaticEmbedder{}, cached.Inner())
}

func TestNewEmbedder_Ollama(t *testing.T) {
	fake := &fakeOllama{dims: 768, models: []string{"nomic-embed-text:latest"}}
	srv := fake.start(t)

	e, err := NewEmbedder(context.Background(), Config{Provider: ProviderOllama, Endpoint: srv.URL})

	require.NoError(t, err)
	assert.IsType(t, &OllamaEmbedder{}, e)
	assert.Equal(t, 768, e.Dimensions())
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(context.Background(), Config{Provider: "bert"})

	require.Error(t, err)
	assert.Equal(t, dmerrors.ErrCodeUnknownProvider, dmerrors.GetCode(err))
	assert.False(t, errors.Is(err, dmerrors.ErrProviderUnavailable))
}
