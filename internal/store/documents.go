package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

const documentColumns = "id, path, title, mtime, hash, created_at, updated_at"

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var (
		doc                     Document
		mtime, created, updated int64
	)
	if err := row.Scan(&doc.ID, &doc.Path, &doc.Title, &mtime, &doc.Hash, &created, &updated); err != nil {
		return nil, err
	}
	doc.ModTime = time.Unix(0, mtime)
	doc.CreatedAt = time.Unix(0, created)
	doc.UpdatedAt = time.Unix(0, updated)
	return &doc, nil
}

// UpsertDocument inserts or updates the row for path. Exactly one row per
// path ever exists.
func (s *Store) UpsertDocument(ctx context.Context, path, title string, mtime time.Time, hash string) (id int64, inserted bool, err error) {
	return upsertDocument(ctx, s.db, DocumentInput{Path: path, Title: title, ModTime: mtime, Hash: hash})
}

func upsertDocument(ctx context.Context, ex execer, in DocumentInput) (int64, bool, error) {
	now := time.Now().UnixNano()

	var id int64
	err := ex.QueryRowContext(ctx, "SELECT id FROM documents WHERE path = ?", in.Path).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := ex.ExecContext(ctx, `
			INSERT INTO documents (path, title, mtime, hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			in.Path, in.Title, in.ModTime.UnixNano(), in.Hash, now, now)
		if err != nil {
			return 0, false, dmerrors.StoreError("failed to insert document "+in.Path, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, false, dmerrors.StoreError("failed to read document id", err)
		}
		return id, true, nil

	case err != nil:
		return 0, false, dmerrors.StoreError("failed to look up document "+in.Path, err)
	}

	_, err = ex.ExecContext(ctx, `
		UPDATE documents SET title = ?, mtime = ?, hash = ?, updated_at = ? WHERE id = ?`,
		in.Title, in.ModTime.UnixNano(), in.Hash, now, id)
	if err != nil {
		return 0, false, dmerrors.StoreError("failed to update document "+in.Path, err)
	}
	return id, false, nil
}

// DocumentNeedsUpdate reports whether path is unknown or its stored hash
// differs from hash.
func (s *Store) DocumentNeedsUpdate(ctx context.Context, path, hash string) (bool, error) {
	var stored string
	err := s.db.QueryRowContext(ctx, "SELECT hash FROM documents WHERE path = ?", path).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, dmerrors.StoreError("failed to look up document "+path, err)
	}
	return stored != hash, nil
}

// GetDocumentByPath returns the document for path, or nil when absent.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE path = ?", path)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dmerrors.StoreError("failed to read document "+path, err)
	}
	return doc, nil
}

// ListDocuments returns all documents ordered by path.
func (s *Store) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY path")
	if err != nil {
		return nil, dmerrors.StoreError("failed to list documents", err)
	}
	defer func() { _ = rows.Close() }()

	docs := []*Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, dmerrors.StoreError("failed to scan document", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, dmerrors.StoreError("failed to list documents", err)
	}
	return docs, nil
}

// DeleteDocumentChunks removes every chunk of a document and their
// embeddings, embeddings first. The document row is kept.
func (s *Store) DeleteDocumentChunks(ctx context.Context, documentID int64) (int, error) {
	var removed int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = purgeChunks(ctx, tx, documentID)
		return err
	})
	return removed, err
}

func purgeChunks(ctx context.Context, ex execer, documentID int64) (int, error) {
	_, err := ex.ExecContext(ctx, `
		DELETE FROM embeddings WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = ?)`, documentID)
	if err != nil {
		return 0, dmerrors.StoreError("failed to delete embeddings", err)
	}

	res, err := ex.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return 0, dmerrors.StoreError("failed to delete chunks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dmerrors.StoreError("failed to count deleted chunks", err)
	}
	return int(n), nil
}

// DeleteDocument removes a document together with its chunks and embeddings.
func (s *Store) DeleteDocument(ctx context.Context, documentID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := purgeChunks(ctx, tx, documentID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID)
		if err != nil {
			return dmerrors.StoreError("failed to delete document", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return dmerrors.NotFound("document", fmt.Sprint(documentID))
		}
		return nil
	})
}

// ReplaceDocument upserts the document, purges its old chunks and inserts
// the new ones with their vectors in a single transaction. On any failure
// nothing changes, so the previous version stays searchable and the stored
// hash still marks the file as stale.
func (s *Store) ReplaceDocument(ctx context.Context, doc DocumentInput, chunks []ChunkInput, vectors [][]float32) (ReplaceResult, error) {
	if len(chunks) != len(vectors) {
		return ReplaceResult{}, dmerrors.InternalError(
			fmt.Sprintf("%d chunks but %d vectors for %s", len(chunks), len(vectors), doc.Path), nil)
	}
	for _, v := range vectors {
		if err := s.checkDimension(v); err != nil {
			return ReplaceResult{}, err
		}
	}

	var result ReplaceResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		id, inserted, err := upsertDocument(ctx, tx, doc)
		if err != nil {
			return err
		}
		result.DocumentID = id
		result.Inserted = inserted

		if !inserted {
			if result.Removed, err = purgeChunks(ctx, tx, id); err != nil {
				return err
			}
		}

		for i, c := range chunks {
			c.DocumentID = id
			if _, err := insertChunk(ctx, tx, c, vectors[i]); err != nil {
				return err
			}
		}
		result.Added = len(chunks)
		return nil
	})
	if err != nil {
		return ReplaceResult{}, err
	}
	return result, nil
}
