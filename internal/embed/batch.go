package embed

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// sendFunc embeds one sub-batch of non-empty texts.
type sendFunc func(ctx context.Context, texts []string) ([][]float32, error)

// batcher fans texts out to a provider in sub-batches.
type batcher struct {
	provider    string
	batchSize   int
	concurrency int
}

// embed splits texts into sub-batches, sends up to concurrency of them at
// once and writes each result back at its original position. Blank texts
// get a zero vector without a request. When dims is positive every returned
// vector must have that length.
func (b batcher) embed(ctx context.Context, texts []string, dims int, send sendFunc) ([][]float32, error) {
	results := make([][]float32, len(texts))
	if len(texts) == 0 {
		return results, nil
	}

	positions := make([]int, 0, len(texts))
	pending := make([]string, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, dims)
			continue
		}
		positions = append(positions, i)
		pending = append(pending, text)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for start := 0; start < len(pending); start += b.batchSize {
		end := min(start+b.batchSize, len(pending))
		g.Go(func() error {
			vecs, err := send(gctx, pending[start:end])
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return dmerrors.ProviderUnavailable(b.provider,
					fmt.Sprintf("returned %d embeddings for %d inputs", len(vecs), end-start), nil).
					WithRetryable(false)
			}
			for j, vec := range vecs {
				if dims > 0 && len(vec) != dims {
					return dmerrors.DimensionMismatch(dims, len(vec))
				}
				results[positions[start+j]] = vec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
