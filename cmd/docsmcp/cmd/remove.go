package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/output"
	"github.com/Aman-CERP/docsmcp/internal/store"
)

func newRemoveCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a knowledge base and its index",
		Long: `Delete the index database of a base and remove it from the registry.
The docs directory itself is never touched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, a, args[0], yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func runRemove(cmd *cobra.Command, a *app, name string, yes bool) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	b, err := cfg.GetBase(name)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if !yes {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Remove base %q (index of %s)? [y/N] ", name, b.DocsPath)
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			out.Status("", "Aborted.")
			return nil
		}
	}

	// A running init, update or watch holds the write lock.
	dbPath := cfg.DBPath(name)
	lock := store.NewWriteLock(dbPath)
	if err := lock.Acquire(cmd.Context(), 0); err != nil {
		return err
	}
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			_ = lock.Release()
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	_ = lock.Release()
	if err := os.Remove(lock.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", lock.Path(), err)
	}

	if err := cfg.RemoveBase(name); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	out.Successf("Removed base %q", name)
	return nil
}
