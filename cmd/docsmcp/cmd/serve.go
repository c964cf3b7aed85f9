package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/logging"
	"github.com/Aman-CERP/docsmcp/internal/mcp"
	"github.com/Aman-CERP/docsmcp/internal/search"
)

func newServeCmd(a *app) *cobra.Command {
	var noResources bool

	cmd := &cobra.Command{
		Use:   "serve <name>",
		Short: "Serve a knowledge base to an AI agent over MCP (stdio)",
		Long: `Start an MCP server on stdin/stdout exposing the search_docs, read_file
and list_files tools for one knowledge base. Indexed documents are also
published as docs://<name>/<path> resources.

stdout carries the protocol, so nothing else is printed there. Logs go to
the docsmcp log file; view them with 'docsmcp logs -f'.`,
		Example: `  # MCP client configuration
  {"command": "docsmcp", "args": ["serve", "handbook"]}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a, args[0], !noResources)
		},
	}

	cmd.Flags().BoolVar(&noResources, "no-resources", false, "Do not publish documents as MCP resources")

	return cmd
}

func runServe(ctx context.Context, a *app, name string, resources bool) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}

	logger, cleanup, err := logging.SetupServe(cfg.LogDir(), a.logLevel(cfg))
	if err != nil {
		return err
	}
	defer cleanup()
	a.logger = logger

	// A provider that is down at launch should not keep the server from
	// starting; searches report it until it comes back.
	o, err := a.openBase(ctx, name, openParams{
		cacheSize:    cfg.Embeddings.CacheSize,
		lazyProvider: true,
	})
	if err != nil {
		logger.Error("failed to open base", slog.String("base", name), slog.Any("error", dmerrors.FormatForLog(err)))
		return err
	}
	defer func() { _ = o.Close() }()

	svc, err := search.New(o.store, o.embedder, o.base.DocsPath, search.WithLogger(logger))
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(svc, name, mcp.WithLogger(logger))
	if err != nil {
		return err
	}

	if resources {
		if _, err := srv.RegisterResources(ctx); err != nil {
			logger.Warn("failed to register resources", slog.String("error", err.Error()))
		}
	}

	logger.Info("serving base",
		slog.String("base", name),
		slog.String("root", o.base.DocsPath),
		slog.String("provider", o.base.Provider),
		slog.String("model", o.embedder.ModelName()),
		slog.Int("dimensions", o.store.Dimensions()))

	return srv.Serve(ctx)
}
