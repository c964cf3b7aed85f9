package store

import (
	"context"
	"database/sql"
	"fmt"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// AddChunk stores a chunk and its embedding atomically.
func (s *Store) AddChunk(ctx context.Context, chunk ChunkInput, vector []float32) (int64, error) {
	if err := s.checkDimension(vector); err != nil {
		return 0, err
	}

	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = insertChunk(ctx, tx, chunk, vector)
		return err
	})
	return id, err
}

func insertChunk(ctx context.Context, ex execer, c ChunkInput, vector []float32) (int64, error) {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO chunks (document_id, content, chunk_index, start_line, end_line, heading)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.DocumentID, c.Content, c.ChunkIndex, c.StartLine, c.EndLine, c.Heading)
	if err != nil {
		return 0, dmerrors.StoreError(fmt.Sprintf("failed to insert chunk %d", c.ChunkIndex), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, dmerrors.StoreError("failed to read chunk id", err)
	}

	if _, err := ex.ExecContext(ctx, "INSERT INTO embeddings (chunk_id, vector) VALUES (?, ?)", id, encodeVector(vector)); err != nil {
		return 0, dmerrors.StoreError(fmt.Sprintf("failed to insert embedding for chunk %d", c.ChunkIndex), err)
	}
	return id, nil
}

// ChunksForDocument returns a document's chunks in chunk order.
func (s *Store) ChunksForDocument(ctx context.Context, documentID int64) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, d.path, d.title, c.content, c.chunk_index, c.start_line, c.end_line, c.heading
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.document_id = ?
		ORDER BY c.chunk_index`, documentID)
	if err != nil {
		return nil, dmerrors.StoreError("failed to list chunks", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Path, &r.Title, &r.Content,
			&r.ChunkIndex, &r.StartLine, &r.EndLine, &r.Heading); err != nil {
			return nil, dmerrors.StoreError("failed to scan chunk", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dmerrors.StoreError("failed to list chunks", err)
	}
	return out, nil
}

// GetStats returns row counts.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(*) FROM embeddings)`).Scan(&st.Documents, &st.Chunks, &st.Embeddings)
	if err != nil {
		return Stats{}, dmerrors.StoreError("failed to count rows", err)
	}
	return st, nil
}

// CheckConsistency verifies that chunks and embeddings pair up one-to-one.
// Divergence is reported as ErrCodeInconsistentIndex.
func (s *Store) CheckConsistency(ctx context.Context) error {
	var missing, orphaned int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM chunks c LEFT JOIN embeddings e ON e.chunk_id = c.id WHERE e.chunk_id IS NULL),
			(SELECT COUNT(*) FROM embeddings e LEFT JOIN chunks c ON c.id = e.chunk_id WHERE c.id IS NULL)`).
		Scan(&missing, &orphaned)
	if err != nil {
		return dmerrors.StoreError("failed to check index consistency", err)
	}
	if missing > 0 || orphaned > 0 {
		return dmerrors.New(dmerrors.ErrCodeInconsistentIndex,
			fmt.Sprintf("index is inconsistent: %d chunks without embedding, %d embeddings without chunk", missing, orphaned), nil).
			WithDetail("chunks_without_embedding", fmt.Sprint(missing)).
			WithDetail("embeddings_without_chunk", fmt.Sprint(orphaned)).
			WithSuggestion("Rebuild the knowledge base with 'docsmcp init --force'")
	}
	return nil
}
