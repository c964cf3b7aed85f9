package preflight

import (
	"context"
	"fmt"
	"time"

	"github.com/Aman-CERP/docsmcp/internal/embed"
	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// providerTimeout bounds the whole provider probe.
const providerTimeout = 30 * time.Second

// CheckProvider builds the configured embedder, which health-checks remote
// providers, embeds a probe text and compares the dimension with the one
// recorded in the index.
func (c *Checker) CheckProvider(ctx context.Context, cfg embed.Config, indexDims int) CheckResult {
	result := CheckResult{
		Name:     "embedding_provider",
		Required: true,
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	cfg.SkipHealthCheck = false
	cfg.CacheSize = 0
	start := time.Now()
	emb, err := c.newEmbedder(ctx, cfg)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not reachable", cfg.Provider)
		result.Details = dmerrors.FormatForUser(err, c.verbose)
		return result
	}
	defer func() { _ = emb.Close() }()

	vec, err := emb.Embed(ctx, "docsmcp doctor")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s failed to embed a probe text", cfg.Provider)
		result.Details = dmerrors.FormatForUser(err, c.verbose)
		return result
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	if indexDims > 0 && len(vec) != indexDims {
		mismatch := dmerrors.DimensionMismatch(indexDims, len(vec))
		result.Status = StatusFail
		result.Message = mismatch.Message
		result.Details = mismatch.Suggestion
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s %s, %d dimensions (%s)", cfg.Provider, emb.ModelName(), len(vec), elapsed)
	return result
}
