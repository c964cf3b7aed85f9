package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/config"
	"github.com/Aman-CERP/docsmcp/internal/embed"
	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/index"
	"github.com/Aman-CERP/docsmcp/internal/store"
	"github.com/Aman-CERP/docsmcp/internal/ui"
)

// openedBase is a registered base with its index and embedder open.
type openedBase struct {
	cfg      *config.Config
	base     *config.Base
	store    *store.Store
	embedder embed.Embedder
}

// openParams tunes openBase.
type openParams struct {
	// cacheSize > 0 wraps the embedder in the query cache.
	cacheSize int
	// lazyProvider skips the provider health check; an unreachable
	// provider then fails individual calls instead of the open.
	lazyProvider bool
}

// openBase opens the index of the named base and an embedder matching it.
func (a *app) openBase(ctx context.Context, name string, p openParams) (*openedBase, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	b, err := cfg.GetBase(name)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.DBPath(name))
	if err != nil {
		return nil, err
	}

	ecfg := cfg.EmbedConfig(b)
	ecfg.CacheSize = p.cacheSize
	ecfg.SkipHealthCheck = p.lazyProvider
	if ecfg.Dimensions == 0 {
		ecfg.Dimensions = st.Dimensions()
	}
	emb, err := embed.NewEmbedder(ctx, ecfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if emb.Dimensions() != st.Dimensions() {
		_ = emb.Close()
		_ = st.Close()
		return nil, dmerrors.DimensionMismatch(st.Dimensions(), emb.Dimensions())
	}

	return &openedBase{cfg: cfg, base: b, store: st, embedder: emb}, nil
}

// Close releases the embedder and the index.
func (o *openedBase) Close() error {
	return errors.Join(o.embedder.Close(), o.store.Close())
}

// indexer builds an Indexer over the open base.
func (a *app) indexer(o *openedBase, r ui.Renderer) (*index.Indexer, error) {
	return index.New(index.Dependencies{
		Store:    o.store,
		Embedder: o.embedder,
		Chunking: o.cfg.ChunkOptions(),
		Renderer: r,
		Logger:   a.logger,
		Exclude:  excludes(o.cfg, o.base),
		LockWait: 30 * time.Second,
	})
}

// touch records a completed indexing run on the base and saves the
// configuration.
func touch(cfg *config.Config, b *config.Base) error {
	b.LastUpdated = time.Now().UTC()
	return cfg.Save()
}

// excludes merges the global and per-base exclude patterns.
func excludes(cfg *config.Config, b *config.Base) []string {
	out := make([]string, 0, len(cfg.Exclude)+len(b.Exclude))
	out = append(out, cfg.Exclude...)
	return append(out, b.Exclude...)
}

// renderer picks the progress display. Debug runs mirror logs to stderr,
// so they always get plain output.
func (a *app) renderer(cmd *cobra.Command, base string) ui.Renderer {
	return ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(a.debug),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithBaseName(base),
	))
}

// runRendered runs fn between renderer Start and Stop.
func runRendered(ctx context.Context, r ui.Renderer, fn func() (*index.Summary, error)) (*index.Summary, error) {
	if err := r.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start progress display: %w", err)
	}
	sum, err := fn()
	if stopErr := r.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	return sum, err
}
