package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/store/migrations"
)

// execer is satisfied by *sql.DB and *sql.Tx so the same statements run
// standalone or inside ReplaceDocument's transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite vector store of one knowledge base.
// It is safe for concurrent use; SQLite serializes writers.
type Store struct {
	db   *sql.DB
	path string
	dims int
}

// Create builds a fresh database at path for vectors of the given dimension,
// replacing any existing file.
func Create(ctx context.Context, path string, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, dmerrors.ValidationError(fmt.Sprintf("invalid embedding dimension %d", dimension), nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, dmerrors.StoreError("failed to create index directory", err)
	}
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, dmerrors.StoreError("failed to remove previous index "+p, err)
		}
	}

	s, err := open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := s.SetMeta(ctx, MetaDimension, strconv.Itoa(dimension)); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.dims = dimension

	slog.Debug("store_created", slog.String("path", path), slog.Int("dimension", dimension))
	return s, nil
}

// Open opens an existing database and reads its dimension.
func Open(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dmerrors.NotFound("index", path).
				WithSuggestion("Create the knowledge base with 'docsmcp init'")
		}
		return nil, dmerrors.StoreError("cannot stat index "+path, err)
	}

	s, err := open(ctx, path)
	if err != nil {
		return nil, err
	}

	raw, ok, err := s.GetMeta(ctx, MetaDimension)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	dims, convErr := strconv.Atoi(raw)
	if !ok || convErr != nil || dims <= 0 {
		_ = s.Close()
		return nil, dmerrors.New(dmerrors.ErrCodeCorruptIndex,
			fmt.Sprintf("index %s has no valid embedding dimension", path), convErr).
			WithSuggestion("Rebuild it with 'docsmcp init --force'")
	}
	s.dims = dims

	return s, nil
}

// open connects, applies pragmas and runs pending migrations.
func open(ctx context.Context, path string) (*Store, error) {
	// Pragmas in the DSN apply to every pooled connection.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, dmerrors.StoreError("failed to open index "+path, err)
	}

	// Single connection: one writer, and transactions never wait on
	// another pooled connection of the same process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, dmerrors.New(dmerrors.ErrCodeCorruptIndex, "failed to migrate index "+path, err)
	}
	return s, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// inTx runs fn in a transaction, committing on success and rolling back
// on error or panic.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dmerrors.StoreError("failed to begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return dmerrors.StoreError("failed to commit transaction", err)
	}
	return nil
}

// Dimensions returns the fixed vector dimension of this index.
func (s *Store) Dimensions() int {
	return s.dims
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// checkDimension rejects vectors whose length differs from the index.
func (s *Store) checkDimension(v []float32) error {
	if len(v) != s.dims {
		return dmerrors.DimensionMismatch(s.dims, len(v))
	}
	return nil
}
