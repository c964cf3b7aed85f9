package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/docsmcp/internal/chunk"
	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/store"
	"github.com/Aman-CERP/docsmcp/internal/ui"
)

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeAdded
	outcomeUpdated
	outcomeIgnored // not ingested, reported as a warning
)

type fileResult struct {
	outcome outcome
	chunks  int
	warning error
}

// Fingerprint is the sha256 hex digest of a file's raw bytes.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ingest indexes one file: fingerprint, staleness check, title, chunk,
// one batch embed, and a single ReplaceDocument transaction. On failure
// the stored document is untouched, so the file stays stale and the next
// update retries it.
func (ix *Indexer) ingest(ctx context.Context, f File, force bool, timing *ui.StageTimings) (fileResult, error) {
	content, err := ix.readFile(f)
	if err != nil {
		if dmerrors.GetCode(err) == dmerrors.ErrCodeFileTooLarge {
			return fileResult{outcome: outcomeIgnored, warning: err}, nil
		}
		return fileResult{}, err
	}
	hash := Fingerprint(content)

	if !force {
		stale, err := ix.store.DocumentNeedsUpdate(ctx, f.Path, hash)
		if err != nil {
			return fileResult{}, err
		}
		if !stale {
			return fileResult{outcome: outcomeSkipped}, nil
		}
	}

	text := string(content)
	doc := store.DocumentInput{
		Path:    f.Path,
		Title:   chunk.ExtractTitle(text, f.Path),
		ModTime: f.ModTime,
		Hash:    hash,
	}

	t := time.Now()
	chunks := ix.chunker.Chunk(text)
	timing.Chunk += time.Since(t)

	inputs := make([]store.ChunkInput, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = store.ChunkInput{
			Content:    c.Content,
			ChunkIndex: c.Index,
			StartLine:  c.StartLine,
			EndLine:    c.EndLine,
			Heading:    c.Heading,
		}
		texts[i] = c.Content
	}

	var vectors [][]float32
	if len(texts) > 0 {
		t = time.Now()
		vectors, err = ix.embed(ctx, texts)
		timing.Embed += time.Since(t)
		if err != nil {
			return fileResult{}, err
		}
	}

	t = time.Now()
	res, err := ix.store.ReplaceDocument(ctx, doc, inputs, vectors)
	timing.Store += time.Since(t)
	if err != nil {
		return fileResult{}, err
	}

	out := fileResult{outcome: outcomeUpdated, chunks: res.Added}
	if res.Inserted {
		out.outcome = outcomeAdded
	}
	if len(chunks) == 0 {
		out.warning = fmt.Errorf("no indexable content")
	}

	ix.logger.Debug("file_indexed",
		slog.String("path", f.Path),
		slog.Bool("inserted", res.Inserted),
		slog.Int("chunks", res.Added),
		slog.Int("replaced", res.Removed))
	return out, nil
}

// embed batch-embeds texts through the circuit breaker.
func (ix *Indexer) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := dmerrors.ExecuteWithResult(ix.breaker, func() ([][]float32, error) {
		return ix.embedder.EmbedBatch(ctx, texts)
	})
	if errors.Is(err, dmerrors.ErrCircuitOpen) {
		return nil, dmerrors.ProviderUnavailable(ix.embedder.ModelName(),
			"skipped after repeated embedding failures", err).
			WithSuggestion("Check that the embedding provider is running, then run 'docsmcp update'")
	}
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, dmerrors.InternalError(
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(texts)), nil)
	}
	return vectors, nil
}
