package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/index"
	"github.com/Aman-CERP/docsmcp/internal/output"
)

// updateOptions holds CLI flags for update.
type updateOptions struct {
	force bool
	prune bool
}

func newUpdateCmd(a *app) *cobra.Command {
	var opts updateOptions

	cmd := &cobra.Command{
		Use:   "update [name]",
		Short: "Re-index changed files of a knowledge base",
		Long: `Bring a knowledge base in line with its docs directory.

New and modified files are re-embedded; unchanged files are skipped by
content hash. Files that disappeared lose their chunks; their document rows
are kept unless --prune is given. Without a name every base is updated.`,
		Example: `  docsmcp update handbook
  docsmcp update handbook --force
  docsmcp update --prune`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runUpdate(cmd.Context(), cmd, a, args[0], opts)
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			names := cfg.BaseNames()
			if len(names) == 0 {
				output.New(cmd.OutOrStdout()).Status("", "No knowledge bases registered. Create one with 'docsmcp init'.")
				return nil
			}
			for _, name := range names {
				if err := runUpdate(cmd.Context(), cmd, a, name, opts); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Re-embed every file even if unchanged")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "Remove document rows of deleted files")

	return cmd
}

func runUpdate(ctx context.Context, cmd *cobra.Command, a *app, name string, opts updateOptions) error {
	o, err := a.openBase(ctx, name, openParams{})
	if err != nil {
		return err
	}
	defer func() { _ = o.Close() }()

	r := a.renderer(cmd, name)
	ix, err := a.indexer(o, r)
	if err != nil {
		return err
	}

	sum, err := runRendered(ctx, r, func() (*index.Summary, error) {
		return ix.Update(ctx, index.UpdateOptions{
			Root:  o.base.DocsPath,
			Force: opts.force,
			Prune: opts.prune,
		})
	})
	if err != nil {
		return err
	}

	if err := touch(o.cfg, o.base); err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if !sum.Changed() {
		out.Successf("%s is up to date", name)
		return nil
	}
	out.Successf("%s updated: %s", name, sum.String())
	return nil
}
