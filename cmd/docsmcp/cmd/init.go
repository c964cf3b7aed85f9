package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/config"
	"github.com/Aman-CERP/docsmcp/internal/embed"
	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/index"
	"github.com/Aman-CERP/docsmcp/internal/output"
)

// initOptions holds CLI flags for init.
type initOptions struct {
	force       bool
	provider    string
	model       string
	endpoint    string
	description string
	exclude     []string
}

func newInitCmd(a *app) *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init <name> <docs-path>",
		Short: "Create a knowledge base from a directory of markdown files",
		Long: `Create a knowledge base: register it, embed every markdown file under
docs-path and write a fresh index.

The provider and model default to the embeddings section of the config
file. They are recorded on the base, so later updates and searches use the
same model.`,
		Example: `  # Index a docs folder with the default provider (Ollama)
  docsmcp init handbook ./docs

  # Use OpenAI embeddings
  docsmcp init api ./api-docs --provider openai

  # Rebuild an existing base from scratch
  docsmcp init handbook ./docs --force`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), cmd, a, args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Replace an existing base of the same name")
	cmd.Flags().StringVarP(&opts.provider, "provider", "p", "", "Embedding provider: ollama, openai, compatible, static")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Embedding model (default depends on the provider)")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Provider base URL")
	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "Description shown to agents and in status")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "Extra gitignore-style patterns to skip (repeatable)")

	return cmd
}

func runInit(ctx context.Context, cmd *cobra.Command, a *app, name, docsPath string, opts initOptions) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	if err := config.ValidateBaseName(name); err != nil {
		return err
	}
	if _, err := cfg.GetBase(name); err == nil && !opts.force {
		return dmerrors.New(dmerrors.ErrCodeBaseExists, "base \""+name+"\" already exists", nil).
			WithSuggestion("Use 'docsmcp update " + name + "' to refresh it or 'docsmcp init " + name + " --force' to rebuild it")
	}

	root, err := filepath.Abs(docsPath)
	if err != nil {
		return dmerrors.New(dmerrors.ErrCodeInvalidPath, "invalid docs path "+docsPath, err)
	}
	info, err := os.Stat(root)
	if errors.Is(err, os.ErrNotExist) {
		return dmerrors.NotFound("directory", root)
	}
	if err != nil {
		return dmerrors.New(dmerrors.ErrCodeFilePermission, "cannot access "+root, err)
	}
	if !info.IsDir() {
		return dmerrors.New(dmerrors.ErrCodeInvalidPath, root+" is not a directory", nil)
	}

	base, err := newBaseFromFlags(cfg, name, root, opts)
	if err != nil {
		return err
	}

	ecfg := cfg.EmbedConfig(base)
	emb, err := embed.NewEmbedder(ctx, ecfg)
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()

	r := a.renderer(cmd, name)
	ix, err := index.New(index.Dependencies{
		Embedder: emb,
		Chunking: cfg.ChunkOptions(),
		Renderer: r,
		Logger:   a.logger,
		Exclude:  excludes(cfg, base),
		LockWait: 30 * time.Second,
	})
	if err != nil {
		return err
	}
	// Init creates the store; Close releases it.
	defer func() { _ = ix.Close() }()

	sum, err := runRendered(ctx, r, func() (*index.Summary, error) {
		return ix.Init(ctx, index.InitOptions{
			Name:     name,
			Root:     root,
			DBPath:   cfg.DBPath(name),
			Provider: string(ecfg.Provider),
		})
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	base.Model = emb.ModelName()
	base.EmbeddingDimension = emb.Dimensions()
	base.CreatedAt = now
	base.LastUpdated = now
	if err := cfg.AddBase(base, true); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	out.Newline()
	out.Successf("Base %q ready: %d documents, %d chunks", name, sum.Added+sum.Updated, sum.Chunks)
	if sum.Errors > 0 {
		out.Warningf("%d files could not be indexed; run with --debug for details", sum.Errors)
	}
	out.Statusf("", "Serve it to an agent with: docsmcp serve %s", name)
	return nil
}

// newBaseFromFlags fills a base record from the config defaults and the
// init flags. A provider given without a model gets that provider's
// default model.
func newBaseFromFlags(cfg *config.Config, name, root string, opts initOptions) (*config.Base, error) {
	base := cfg.NewBase(name, root)
	if opts.provider != "" {
		p, err := embed.ParseProvider(opts.provider)
		if err != nil {
			return nil, err
		}
		if string(p) != base.Provider && opts.model == "" {
			base.Model = embed.DefaultModel(p)
		}
		base.Provider = string(p)
	}
	if opts.model != "" {
		base.Model = opts.model
	}
	base.Endpoint = opts.endpoint
	base.Description = opts.description
	base.Exclude = opts.exclude
	return base, base.Validate()
}
