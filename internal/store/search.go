package store

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"strings"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// candidate is a scored chunk id during the scan.
type candidate struct {
	chunkID  int64
	distance float64
}

// worse reports whether a ranks below b: farther, or equally far with a
// larger chunk id.
func worse(a, b candidate) bool {
	if a.distance != b.distance {
		return a.distance > b.distance
	}
	return a.chunkID > b.chunkID
}

// topK is a max-heap on rank holding the k best candidates seen so far.
type topK []candidate

func (h topK) Len() int           { return len(h) }
func (h topK) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h topK) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *topK) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *topK) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Search returns the k chunks nearest to query by exact Euclidean distance,
// closest first, with Score = 1/(1+distance). Every stored vector is
// compared; there is no approximate index.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	if k < 1 {
		return nil, dmerrors.ValidationError(fmt.Sprintf("k must be at least 1, got %d", k), nil)
	}
	if err := s.checkDimension(query); err != nil {
		return nil, err
	}

	best, err := s.scan(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if len(best) == 0 {
		return []SearchResult{}, nil
	}

	sort.Slice(best, func(i, j int) bool { return worse(best[j], best[i]) })
	return s.hydrate(ctx, best)
}

// scan streams every embedding and keeps the k nearest.
func (s *Store) scan(ctx context.Context, query []float32, k int) ([]candidate, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT chunk_id, vector FROM embeddings")
	if err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeSearchFailed, "failed to scan embeddings", err)
	}
	defer func() { _ = rows.Close() }()

	h := make(topK, 0, k+1)
	for rows.Next() {
		var (
			c    candidate
			blob []byte
		)
		if err := rows.Scan(&c.chunkID, &blob); err != nil {
			return nil, dmerrors.New(dmerrors.ErrCodeSearchFailed, "failed to read embedding", err)
		}
		vec := decodeVector(blob)
		if len(vec) != len(query) {
			return nil, dmerrors.New(dmerrors.ErrCodeInconsistentIndex,
				fmt.Sprintf("stored embedding for chunk %d has dimension %d, index uses %d", c.chunkID, len(vec), len(query)), nil)
		}
		c.distance = l2Distance(query, vec)

		if h.Len() < k {
			heap.Push(&h, c)
		} else if worse(h[0], c) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeSearchFailed, "failed to scan embeddings", err)
	}
	return h, nil
}

// hydrate loads chunk and document fields for ranked candidates.
func (s *Store) hydrate(ctx context.Context, ranked []candidate) ([]SearchResult, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ranked)), ",")
	args := make([]any, len(ranked))
	for i, c := range ranked {
		args[i] = c.chunkID
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, d.path, d.title, c.content, c.chunk_index, c.start_line, c.end_line, c.heading
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeSearchFailed, "failed to load chunks", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[int64]SearchResult, len(ranked))
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Path, &r.Title, &r.Content,
			&r.ChunkIndex, &r.StartLine, &r.EndLine, &r.Heading); err != nil {
			return nil, dmerrors.New(dmerrors.ErrCodeSearchFailed, "failed to scan chunk", err)
		}
		byID[r.ChunkID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeSearchFailed, "failed to load chunks", err)
	}

	results := make([]SearchResult, 0, len(ranked))
	for _, c := range ranked {
		r, ok := byID[c.chunkID]
		if !ok {
			return nil, dmerrors.New(dmerrors.ErrCodeInconsistentIndex,
				fmt.Sprintf("embedding %d has no chunk", c.chunkID), nil)
		}
		r.Distance = c.distance
		r.Score = scoreFromDistance(c.distance)
		results = append(results, r)
	}
	return results, nil
}
