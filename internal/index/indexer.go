// Package index builds and incrementally refreshes the vector index of a
// knowledge base: discover markdown files, fingerprint them, and chunk,
// embed and store the ones that changed.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Aman-CERP/docsmcp/internal/chunk"
	"github.com/Aman-CERP/docsmcp/internal/embed"
	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/store"
	"github.com/Aman-CERP/docsmcp/internal/ui"
)

// DefaultMaxFileSize is the largest markdown file ingested; bigger files
// are skipped with a warning.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Dependencies are the collaborators of an Indexer.
type Dependencies struct {
	// Store is the open index to update. Nil before Init creates one.
	Store *store.Store

	// Embedder turns chunk text into vectors (required).
	Embedder embed.Embedder

	// Chunking configures the chunker. The zero value means chunk.DefaultOptions().
	Chunking chunk.Options

	// Renderer receives progress. Defaults to ui.Discard.
	Renderer ui.Renderer

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Exclude holds extra gitignore-style patterns skipped during discovery.
	Exclude []string

	// MaxFileSize defaults to DefaultMaxFileSize.
	MaxFileSize int64

	// LockWait is how long to wait for another writer; zero fails at once.
	LockWait time.Duration

	// Breaker guards embedding calls. Defaults to 5 failures / 30s.
	Breaker *dmerrors.CircuitBreaker
}

// InitOptions configures a full index build.
type InitOptions struct {
	Name     string // Base name, stored as metadata
	Root     string // Directory of markdown files
	DBPath   string // Database file to (re)create
	Provider string // Embedding provider name, stored as metadata
}

// UpdateOptions configures an incremental refresh.
type UpdateOptions struct {
	// Root overrides the root recorded at init time.
	Root string

	// Force re-ingests files whose fingerprint is unchanged.
	Force bool

	// Prune deletes document rows of vanished files instead of keeping them
	// chunk-less.
	Prune bool
}

// Indexer runs Init and Update against one knowledge base.
// Runs on one Indexer must not overlap; separate processes are kept apart
// by the base's write lock.
type Indexer struct {
	store       *store.Store
	ownsStore   bool
	embedder    embed.Embedder
	chunker     *chunk.Chunker
	renderer    ui.Renderer
	logger      *slog.Logger
	exclude     []string
	maxFileSize int64
	lockWait    time.Duration
	breaker     *dmerrors.CircuitBreaker
}

// New creates an Indexer.
func New(deps Dependencies) (*Indexer, error) {
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	opts := deps.Chunking
	if opts == (chunk.Options{}) {
		opts = chunk.DefaultOptions()
	}
	ix := &Indexer{
		store:       deps.Store,
		embedder:    deps.Embedder,
		chunker:     chunk.New(opts),
		renderer:    deps.Renderer,
		logger:      deps.Logger,
		exclude:     deps.Exclude,
		maxFileSize: deps.MaxFileSize,
		lockWait:    deps.LockWait,
		breaker:     deps.Breaker,
	}
	if ix.renderer == nil {
		ix.renderer = ui.Discard{}
	}
	if ix.logger == nil {
		ix.logger = slog.Default()
	}
	if ix.maxFileSize <= 0 {
		ix.maxFileSize = DefaultMaxFileSize
	}
	if ix.breaker == nil {
		ix.breaker = dmerrors.NewCircuitBreaker("embedder")
	}
	return ix, nil
}

// Store returns the index the Indexer writes to, or nil before Init.
func (ix *Indexer) Store() *store.Store {
	return ix.store
}

// Close closes a store created by Init. A store passed in Dependencies
// belongs to the caller.
func (ix *Indexer) Close() error {
	if ix.ownsStore && ix.store != nil {
		err := ix.store.Close()
		ix.store = nil
		ix.ownsStore = false
		return err
	}
	return nil
}

// Init builds a fresh index of every markdown file under opts.Root,
// replacing whatever database was at opts.DBPath.
func (ix *Indexer) Init(ctx context.Context, opts InitOptions) (*Summary, error) {
	start := time.Now()

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeInvalidPath, "invalid root "+opts.Root, err)
	}

	timing := ui.StageTimings{}
	ix.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageScanning, Message: "Scanning " + root})
	files, err := Discover(ctx, root, ix.exclude)
	if err != nil {
		return nil, err
	}
	timing.Scan = time.Since(start)
	if len(files) == 0 {
		return nil, dmerrors.NothingToIndex(root)
	}

	lock := store.NewWriteLock(opts.DBPath)
	if err := lock.Acquire(ctx, ix.lockWait); err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	if err := ix.Close(); err != nil {
		ix.logger.Warn("failed to close previous store", slog.String("error", err.Error()))
	}
	st, err := store.Create(ctx, opts.DBPath, ix.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	ix.store, ix.ownsStore = st, true

	now := time.Now().UTC().Format(time.RFC3339)
	if err := st.SetMetadata(ctx, map[string]string{
		store.MetaName:      opts.Name,
		store.MetaProvider:  opts.Provider,
		store.MetaModel:     ix.embedder.ModelName(),
		store.MetaDimension: strconv.Itoa(ix.embedder.Dimensions()),
		store.MetaRoot:      root,
		store.MetaCreatedAt: now,
	}); err != nil {
		return nil, err
	}

	ix.logger.Info("index_init_started",
		slog.String("base", opts.Name),
		slog.String("root", root),
		slog.Int("files", len(files)),
		slog.String("model", ix.embedder.ModelName()),
		slog.Int("dimensions", ix.embedder.Dimensions()))

	sum := &Summary{}
	if err := ix.ingestAll(ctx, files, true, sum, &timing); err != nil {
		return sum, err
	}
	return sum, ix.finish(ctx, opts.Name, len(files), sum, start, timing)
}

// Update brings an existing index in line with its root directory:
// vanished files lose their chunks, new and changed files are ingested,
// and unchanged files are skipped unless opts.Force is set.
func (ix *Indexer) Update(ctx context.Context, opts UpdateOptions) (*Summary, error) {
	start := time.Now()

	st := ix.store
	if st == nil {
		return nil, dmerrors.InternalError("update needs an open index", nil)
	}
	if st.Dimensions() != ix.embedder.Dimensions() {
		return nil, dmerrors.DimensionMismatch(st.Dimensions(), ix.embedder.Dimensions())
	}

	meta, err := st.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	root := opts.Root
	if root == "" {
		root = meta[store.MetaRoot]
	}
	if root == "" {
		return nil, dmerrors.ConfigError("index has no recorded root directory", nil).
			WithSuggestion("Pass the docs directory explicitly or re-create the base with 'docsmcp init'")
	}
	if root, err = filepath.Abs(root); err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeInvalidPath, "invalid root "+root, err)
	}

	lock := store.NewWriteLock(st.Path())
	if err := lock.Acquire(ctx, ix.lockWait); err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	timing := ui.StageTimings{}
	ix.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageScanning, Message: "Scanning " + root})
	files, err := Discover(ctx, root, ix.exclude)
	if err != nil {
		return nil, err
	}
	timing.Scan = time.Since(start)

	docs, err := st.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	ix.logger.Info("index_update_started",
		slog.String("base", meta[store.MetaName]),
		slog.String("root", root),
		slog.Int("files", len(files)),
		slog.Int("known_documents", len(docs)),
		slog.Bool("force", opts.Force),
		slog.Bool("prune", opts.Prune))

	sum := &Summary{}
	if err := ix.removeVanished(ctx, docs, files, opts.Prune, sum); err != nil {
		return sum, err
	}
	if err := ix.ingestAll(ctx, files, opts.Force, sum, &timing); err != nil {
		return sum, err
	}
	return sum, ix.finish(ctx, meta[store.MetaName], len(files), sum, start, timing)
}

// removeVanished purges documents whose file is no longer discovered.
func (ix *Indexer) removeVanished(ctx context.Context, docs []*store.Document, files []File, prune bool, sum *Summary) error {
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Path] = true
	}

	var vanished []*store.Document
	for _, d := range docs {
		if !present[d.Path] {
			vanished = append(vanished, d)
		}
	}
	if len(vanished) == 0 {
		return nil
	}

	for i, d := range vanished {
		if err := ctx.Err(); err != nil {
			return err
		}
		ix.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:       ui.StageCleanup,
			Current:     i + 1,
			Total:       len(vanished),
			CurrentFile: d.Path,
		})

		removed, err := ix.store.DeleteDocumentChunks(ctx, d.ID)
		if err != nil {
			if dmerrors.IsFatal(err) {
				return err
			}
			sum.fail(d.Path, err)
			ix.renderer.AddError(ui.ErrorEvent{File: d.Path, Err: err})
			continue
		}
		if removed > 0 {
			sum.Deleted++
		}

		if prune {
			if err := ix.store.DeleteDocument(ctx, d.ID); err != nil {
				sum.fail(d.Path, err)
				ix.renderer.AddError(ui.ErrorEvent{File: d.Path, Err: err})
				continue
			}
			sum.Pruned++
		}

		ix.logger.Debug("document_removed",
			slog.String("path", d.Path),
			slog.Int("chunks", removed),
			slog.Bool("pruned", prune))
	}
	return nil
}

// ingestAll runs the per-file ingest over files. Per-file failures are
// recorded in sum; only fatal errors and cancellation stop the run.
func (ix *Indexer) ingestAll(ctx context.Context, files []File, force bool, sum *Summary, timing *ui.StageTimings) error {
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		ix.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:       ui.StageIndexing,
			Current:     i + 1,
			Total:       len(files),
			CurrentFile: f.Path,
		})

		res, err := ix.ingest(ctx, f, force, timing)
		if err != nil {
			if abortsRun(ctx, err) {
				ix.logger.Error("index_aborted",
					slog.String("path", f.Path),
					slog.Any("error", dmerrors.FormatForLog(err)))
				return err
			}
			sum.fail(f.Path, err)
			ix.renderer.AddError(ui.ErrorEvent{File: f.Path, Err: err})
			ix.logger.Warn("file_index_failed",
				slog.String("path", f.Path),
				slog.Any("error", dmerrors.FormatForLog(err)))
			continue
		}

		switch res.outcome {
		case outcomeSkipped:
			sum.Skipped++
		case outcomeAdded:
			sum.Added++
		case outcomeUpdated:
			sum.Updated++
		}
		sum.Chunks += res.chunks
		if res.warning != nil {
			sum.warn(f.Path, res.warning)
			ix.renderer.AddError(ui.ErrorEvent{File: f.Path, Err: res.warning, IsWarn: true})
		}
	}
	return nil
}

// abortsRun reports whether err must stop the whole run rather than just
// the current file.
func abortsRun(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		dmerrors.IsFatal(err) ||
		errors.Is(err, dmerrors.ErrDimensionMismatch)
}

// finish stamps metadata, verifies the chunk/embedding pairing and reports
// completion.
func (ix *Indexer) finish(ctx context.Context, name string, files int, sum *Summary, start time.Time, timing ui.StageTimings) error {
	if err := ix.store.SetMeta(ctx, store.MetaUpdatedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := ix.store.CheckConsistency(ctx); err != nil {
		return err
	}

	sum.Duration = time.Since(start)
	ix.renderer.Complete(ui.CompletionStats{
		Base:     name,
		Files:    files,
		Added:    sum.Added,
		Updated:  sum.Updated,
		Deleted:  sum.Deleted,
		Skipped:  sum.Skipped,
		Chunks:   sum.Chunks,
		Duration: sum.Duration,
		Errors:   sum.Errors,
		Warnings: sum.Warnings,
		Stages:   timing,
		Embedder: ui.EmbedderInfo{
			Provider:   ix.providerName(ctx),
			Model:      ix.embedder.ModelName(),
			Dimensions: ix.embedder.Dimensions(),
		},
	})

	ix.logger.Info("index_complete",
		slog.String("base", name),
		slog.Int("files", files),
		slog.Int("added", sum.Added),
		slog.Int("updated", sum.Updated),
		slog.Int("deleted", sum.Deleted),
		slog.Int("pruned", sum.Pruned),
		slog.Int("skipped", sum.Skipped),
		slog.Int("errors", sum.Errors),
		slog.Int("warnings", sum.Warnings),
		slog.Int("chunks", sum.Chunks),
		slog.Int64("duration_total_ms", sum.Duration.Milliseconds()),
		slog.Int64("duration_scan_ms", timing.Scan.Milliseconds()),
		slog.Int64("duration_chunk_ms", timing.Chunk.Milliseconds()),
		slog.Int64("duration_embed_ms", timing.Embed.Milliseconds()),
		slog.Int64("duration_store_ms", timing.Store.Milliseconds()))
	return nil
}

func (ix *Indexer) providerName(ctx context.Context) string {
	if v, ok, err := ix.store.GetMeta(ctx, store.MetaProvider); err == nil && ok {
		return v
	}
	return ""
}

// readFile reads f unless it exceeds the size limit.
func (ix *Indexer) readFile(f File) ([]byte, error) {
	info, err := os.Stat(f.AbsPath)
	if err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeFilePermission, "cannot read "+f.Path, err)
	}
	if info.Size() > ix.maxFileSize {
		return nil, dmerrors.New(dmerrors.ErrCodeFileTooLarge,
			fmt.Sprintf("%s is %d bytes, limit is %d", f.Path, info.Size(), ix.maxFileSize), nil)
	}
	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeFilePermission, "cannot read "+f.Path, err)
	}
	return content, nil
}
