// Package cmd provides the CLI commands for docsmcp.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/config"
	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/logging"
	"github.com/Aman-CERP/docsmcp/internal/profiling"
	"github.com/Aman-CERP/docsmcp/pkg/version"
)

// app is the state shared by every command of one invocation. The
// configuration is loaded at most once and handed to the commands.
type app struct {
	configPath string
	debug      bool
	profile    profiling.Options

	cfg        *config.Config
	logger     *slog.Logger
	logCleanup func()
	profiler   *profiling.Session
}

func newApp() *app {
	return &app{logger: logging.Discard()}
}

// NewRootCmd creates the root command for the docsmcp CLI.
func NewRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docsmcp",
		Short: "Semantic search over markdown documentation for AI agents",
		Long: `docsmcp indexes directories of markdown documentation into local
knowledge bases and serves them to AI agents over the Model Context Protocol.

Each base has its own embedding provider and SQLite index. Create one with
'docsmcp init', keep it fresh with 'docsmcp update' or 'docsmcp watch', and
expose it with 'docsmcp serve'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("docsmcp version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/docsmcp/config.yaml)")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to the docsmcp log file")
	cmd.PersistentFlags().StringVar(&a.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Mem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = a.setup
	cmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		return a.close()
	}

	cmd.AddCommand(newInitCmd(a))
	cmd.AddCommand(newUpdateCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newRemoveCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newDoctorCmd(a))
	cmd.AddCommand(newLogsCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command with interrupt handling and prints any
// error in CLI form on stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	root := a.rootCmd()
	err := root.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when a command fails.
	_ = a.close()

	if err != nil {
		printError(root, err)
	}
	return err
}

func printError(cmd *cobra.Command, err error) {
	var de *dmerrors.DocsError
	if errors.As(err, &de) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), dmerrors.FormatForCLI(err))
		return
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
}

// setup starts profiling and debug logging. serve configures its own file
// logging because stdout and stderr belong to the MCP client.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.profile.Enabled() {
		s, err := profiling.Start(a.profile)
		if err != nil {
			return err
		}
		a.profiler = s
	}

	if !a.debug || cmd.Name() == "serve" {
		return nil
	}

	dir := filepath.Join(config.DefaultDataDir(), "logs")
	if cfg, err := a.config(); err == nil {
		dir = cfg.LogDir()
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig(dir))
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	a.logger, a.logCleanup = logger, cleanup
	slog.SetDefault(logger)
	logger.Debug("debug logging enabled",
		slog.String("log_file", logging.LogPath(dir)),
		slog.String("version", version.Version),
		slog.String("command", cmd.CommandPath()))
	return nil
}

// close stops profiling and flushes the log file. It is idempotent.
func (a *app) close() error {
	var err error
	if a.profiler != nil {
		err = a.profiler.Stop()
		a.profiler = nil
	}
	if a.logCleanup != nil {
		a.logCleanup()
		a.logCleanup = nil
	}
	return err
}

// config loads the configuration on first use.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// logLevel is the level for file logging: debug with --debug, otherwise
// the configured server level.
func (a *app) logLevel(cfg *config.Config) string {
	if a.debug {
		return "debug"
	}
	return cfg.Server.LogLevel
}
