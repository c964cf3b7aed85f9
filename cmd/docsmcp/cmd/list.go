package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/output"
	"github.com/Aman-CERP/docsmcp/internal/search"
	"github.com/Aman-CERP/docsmcp/internal/store"
)

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [name]",
		Short: "List knowledge bases, or the documents of one base",
		Example: `  # All registered bases
  docsmcp list

  # Documents indexed in a base
  docsmcp list handbook`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runListFiles(cmd.Context(), cmd, a, args[0])
			}
			return runListBases(cmd, a)
		},
	}
	return cmd
}

func runListBases(cmd *cobra.Command, a *app) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	names := cfg.BaseNames()
	if len(names) == 0 {
		out.Status("", "No knowledge bases registered. Create one with 'docsmcp init <name> <docs-path>'.")
		return nil
	}

	out.Header("Knowledge bases")
	for _, name := range names {
		b := cfg.Bases[name]
		out.KeyValue(name, fmt.Sprintf("%s (%s/%s)", b.DocsPath, b.Provider, b.Model), 16)
		if b.Description != "" {
			out.Statusf("", "  %s", b.Description)
		}
	}
	return nil
}

// runListFiles reads the document list from the index only.
func runListFiles(ctx context.Context, cmd *cobra.Command, a *app, name string) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	if _, err := cfg.GetBase(name); err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.DBPath(name))
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	docs, err := st.ListDocuments(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(search.FormatFileList(docs), "\n"))
	return err
}
