package preflight

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsmcp/internal/embed"
	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

func staticFactory(dims int) EmbedderFactory {
	return func(_ context.Context, _ embed.Config) (embed.Embedder, error) {
		return embed.NewStaticEmbedder(dims), nil
	}
}

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
		{CheckStatus(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{"required pass is not critical", CheckResult{Status: StatusPass, Required: true}, false},
		{"required fail is critical", CheckResult{Status: StatusFail, Required: true}, true},
		{"optional fail is not critical", CheckResult{Status: StatusFail, Required: false}, false},
		{"required warn is not critical", CheckResult{Status: StatusWarn, Required: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestChecker_SummaryStatus(t *testing.T) {
	c := New()

	assert.Equal(t, "ready", c.SummaryStatus([]CheckResult{{Status: StatusPass, Required: true}}))
	assert.Equal(t, "ready_with_warnings", c.SummaryStatus([]CheckResult{
		{Status: StatusPass, Required: true},
		{Status: StatusWarn},
	}))
	assert.Equal(t, "failed", c.SummaryStatus([]CheckResult{
		{Status: StatusWarn},
		{Status: StatusFail, Required: true},
	}))
	assert.True(t, c.HasCriticalFailures([]CheckResult{{Status: StatusFail, Required: true}}))
	assert.False(t, c.HasCriticalFailures([]CheckResult{{Status: StatusFail}}))
}

func TestChecker_CheckDocsPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(file, []byte("# Hi"), 0o644))
	c := New()

	assert.Equal(t, StatusPass, c.CheckDocsPath(dir).Status)

	missing := c.CheckDocsPath(filepath.Join(dir, "missing"))
	assert.Equal(t, StatusFail, missing.Status)
	assert.True(t, missing.IsCritical())

	notDir := c.CheckDocsPath(file)
	assert.Equal(t, StatusFail, notDir.Status)
	assert.Contains(t, notDir.Message, "not a directory")
}

func TestChecker_CheckWritePermissions(t *testing.T) {
	// Given: a data directory that does not exist yet
	dir := filepath.Join(t.TempDir(), "data")
	c := New()

	// When: checking it
	result := c.CheckWritePermissions(dir)

	// Then: it is created, writable, and left clean
	assert.Equal(t, StatusPass, result.Status)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestChecker_CheckWritePermissions_ReadOnly(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	result := New().CheckWritePermissions(dir)

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "permission denied")
}

func TestChecker_CheckDiskSpace_MissingPathUsesParent(t *testing.T) {
	result := New().CheckDiskSpace(filepath.Join(t.TempDir(), "not", "yet"))

	assert.Equal(t, "disk_space", result.Name)
	assert.Contains(t, result.Message, "free")
}

func TestChecker_CheckProvider(t *testing.T) {
	cfg := embed.Config{Provider: embed.ProviderStatic}

	tests := []struct {
		name       string
		factory    EmbedderFactory
		indexDims  int
		wantStatus CheckStatus
		wantText   string
	}{
		{
			name:       "reachable with unknown index dimension",
			factory:    staticFactory(64),
			wantStatus: StatusPass,
			wantText:   "64 dimensions",
		},
		{
			name:       "dimension matches the index",
			factory:    staticFactory(64),
			indexDims:  64,
			wantStatus: StatusPass,
			wantText:   "static",
		},
		{
			name:       "dimension differs from the index",
			factory:    staticFactory(64),
			indexDims:  768,
			wantStatus: StatusFail,
			wantText:   "dimension mismatch",
		},
		{
			name: "provider unreachable",
			factory: func(context.Context, embed.Config) (embed.Embedder, error) {
				return nil, dmerrors.ProviderUnavailable("ollama", "connection refused", errors.New("dial tcp"))
			},
			wantStatus: StatusFail,
			wantText:   "not reachable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a checker with a stub provider
			c := New(WithEmbedderFactory(tt.factory))

			// When: probing
			result := c.CheckProvider(context.Background(), cfg, tt.indexDims)

			// Then: status and message reflect the provider
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Contains(t, result.Message, tt.wantText)
			assert.True(t, result.Required)
		})
	}
}

func TestChecker_CheckProvider_DetailsFollowVerbosity(t *testing.T) {
	unreachable := func(context.Context, embed.Config) (embed.Embedder, error) {
		return nil, dmerrors.ProviderUnavailable("ollama", "connection refused", errors.New("dial tcp 127.0.0.1:11434"))
	}
	cfg := embed.Config{Provider: embed.ProviderOllama}

	tests := []struct {
		name      string
		verbose   bool
		wantCause bool
	}{
		{name: "quiet", verbose: false, wantCause: false},
		{name: "verbose", verbose: true, wantCause: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: an unreachable provider
			c := New(WithEmbedderFactory(unreachable), WithVerbose(tt.verbose), WithOutput(&bytes.Buffer{}))

			// When: probing
			result := c.CheckProvider(context.Background(), cfg, 0)

			// Then: details carry the user message, and the cause only when verbose
			assert.Equal(t, StatusFail, result.Status)
			assert.Contains(t, result.Details, "Error: ")
			if tt.wantCause {
				assert.Contains(t, result.Details, "dial tcp 127.0.0.1:11434")
			} else {
				assert.NotContains(t, result.Details, "dial tcp 127.0.0.1:11434")
			}
		})
	}
}

func TestChecker_RunAll(t *testing.T) {
	// Given: a full target
	docs := t.TempDir()
	data := filepath.Join(t.TempDir(), "data")
	c := New(WithEmbedderFactory(staticFactory(32)))

	// When: running every check
	results := c.RunAll(context.Background(), Target{
		Base:           "kb",
		DocsPath:       docs,
		DataDir:        data,
		Embed:          embed.Config{Provider: embed.ProviderStatic},
		IndexDimension: 32,
	})

	// Then: each check appears once
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"docs_path", "data_dir", "disk_space", "embedding_provider", "file_descriptors"}, names)
	assert.False(t, c.HasCriticalFailures(results[:2]))
}

func TestChecker_RunAll_SkipsEmptyTargetFields(t *testing.T) {
	results := New().RunAll(context.Background(), Target{})

	require.Len(t, results, 1)
	assert.Equal(t, "file_descriptors", results[0].Name)
}

func TestChecker_PrintResults(t *testing.T) {
	// Given: mixed results
	var buf bytes.Buffer
	c := New(WithOutput(&buf))

	// When: printing
	c.PrintResults([]CheckResult{
		{Name: "docs_path", Status: StatusPass, Message: "/docs", Required: true},
		{Name: "embedding_provider", Status: StatusFail, Message: "ollama is not reachable", Details: "start ollama", Required: true},
	})

	// Then: failures carry their details and the summary is shown
	out := buf.String()
	assert.Contains(t, out, "✓ docs_path: /docs")
	assert.Contains(t, out, "✗ embedding_provider: ollama is not reachable")
	assert.Contains(t, out, "start ollama")
	assert.Contains(t, out, "Status: FAILED")
}
