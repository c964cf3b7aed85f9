package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/docsmcp/internal/config"
	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/output"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration file and its backups",
		Long: `Inspect the docsmcp configuration file.

Every change made by init, update or remove backs the file up first, keeping
the newest three copies next to it. 'config restore' rolls back to one.`,
		Example: `  # Print the config file path
  docsmcp config path

  # Show the effective configuration
  docsmcp config show --json

  # Roll back to the newest backup
  docsmcp config restore`,
	}

	cmd.AddCommand(newConfigPathCmd(a))
	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigBackupsCmd(a))
	cmd.AddCommand(newConfigRestoreCmd(a))

	return cmd
}

// configFile is the file the invocation reads and writes. It does not
// load the file, so it works when the current one is broken.
func (a *app) configFile() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.GetUserConfigPath()
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), a.configFile())
			return nil
		},
	}
}

func newConfigShowCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (defaults, file, .env, environment)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			return runConfigShow(cmd, cfg, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// runConfigShow prints cfg with API keys masked.
func runConfigShow(cmd *cobra.Command, cfg *config.Config, jsonOutput bool) error {
	shown := *cfg
	shown.Embeddings.APIKey = maskSecret(cfg.Embeddings.APIKey)
	shown.Bases = make(map[string]*config.Base, len(cfg.Bases))
	for name, b := range cfg.Bases {
		cp := *b
		cp.APIKey = maskSecret(b.APIKey)
		shown.Bases[name] = &cp
	}

	if jsonOutput {
		data, err := json.MarshalIndent(&shown, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	out := output.New(cmd.OutOrStdout())
	out.Statusf("", "# %s", cfg.Path())
	out.Text(string(data))
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func newConfigBackupsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List config backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backups, err := config.ListBackups(a.configFile())
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				output.New(cmd.OutOrStdout()).Status("", "No config backups found.")
				return nil
			}
			for _, b := range backups {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), b)
			}
			return nil
		},
	}
}

func newConfigRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [backup]",
		Short: "Replace the config file with a backup (default: the newest)",
		Long: `Replace the config file with one of its backups. The current file is
backed up first, so a restore can itself be undone. The backup must parse
and validate before anything is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var backup string
			if len(args) == 1 {
				backup = args[0]
			}
			return runConfigRestore(cmd, a.configFile(), backup)
		},
	}
}

func runConfigRestore(cmd *cobra.Command, path, backup string) error {
	if backup == "" {
		backups, err := config.ListBackups(path)
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			return dmerrors.NotFound("config backup", path+config.BackupSuffix+".*")
		}
		backup = backups[0]
	} else if !filepath.IsAbs(backup) && filepath.Dir(backup) == "." {
		// A bare name refers to a file next to the config.
		backup = filepath.Join(filepath.Dir(path), backup)
	}

	restored, err := config.Loader{Path: backup}.Load()
	if err != nil {
		return err
	}
	if err := config.RestoreConfig(path, backup); err != nil {
		return err
	}

	output.New(cmd.OutOrStdout()).Successf("Restored %s from %s (%d bases)",
		path, filepath.Base(backup), len(restored.Bases))
	return nil
}
