package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/index"
	"github.com/Aman-CERP/docsmcp/internal/logging"
	"github.com/Aman-CERP/docsmcp/internal/output"
	"github.com/Aman-CERP/docsmcp/internal/ui"
	"github.com/Aman-CERP/docsmcp/internal/watcher"
)

// watchOptions holds CLI flags for watch.
type watchOptions struct {
	polling bool
	prune   bool
}

func newWatchCmd(a *app) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch <name>",
		Short: "Re-index a knowledge base whenever its markdown files change",
		Long: `Catch the base up with its docs directory, then watch the directory and
run an update after every burst of markdown changes.

Changes are debounced (watch.debounce in the config file, default 500ms).
When fsnotify is unavailable the directory is polled instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, a, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.polling, "polling", false, "Poll instead of using filesystem notifications")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "Remove document rows of deleted files")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, a *app, name string, opts watchOptions) error {
	if !a.debug {
		a.logger = logging.NewConsole(cmd.ErrOrStderr(), "warn")
	}

	o, err := a.openBase(ctx, name, openParams{})
	if err != nil {
		return err
	}
	defer func() { _ = o.Close() }()

	ix, err := a.indexer(o, ui.Discard{})
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	update := func() error {
		sum, err := ix.Update(ctx, index.UpdateOptions{Root: o.base.DocsPath, Prune: opts.prune})
		if err != nil {
			return err
		}
		for _, f := range sum.Failures {
			if f.Warning {
				out.Warningf("%s: %v", f.Path, f.Err)
			} else {
				out.Errorf("%s: %v", f.Path, f.Err)
			}
		}
		if !sum.Changed() {
			return nil
		}
		out.Successf("%s updated: %s", name, sum.String())
		return touch(o.cfg, o.base)
	}

	if err := update(); err != nil {
		return err
	}

	w, err := watcher.NewHybridWatcher(watcher.Options{
		Debounce:     o.cfg.WatchDebounce(),
		Exclude:      excludes(o.cfg, o.base),
		ForcePolling: opts.polling,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	startErr := make(chan error, 1)
	go func() {
		startErr <- w.Start(ctx, o.base.DocsPath)
	}()

	out.Statusf("", "Watching %s for changes. Press Ctrl+C to stop.", o.base.DocsPath)

	events, errs := w.Events(), w.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-startErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil

		case batch, ok := <-events:
			if !ok {
				return nil
			}
			a.logger.Info("change_batch",
				slog.Int("events", len(batch)),
				slog.String("watcher", w.WatcherType()))
			if err := update(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if dmerrors.IsFatal(err) || errors.Is(err, dmerrors.ErrDimensionMismatch) {
					return err
				}
				// Provider outages and lock contention clear up; the next
				// batch retries.
				out.Error(dmerrors.FormatForUser(err, a.debug))
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}
