package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/preflight"
)

// doctorOptions holds CLI flags for doctor.
type doctorOptions struct {
	verbose    bool
	jsonOutput bool
	offline    bool
}

func newDoctorCmd(a *app) *cobra.Command {
	var opts doctorOptions

	cmd := &cobra.Command{
		Use:   "doctor [name]",
		Short: "Check system requirements and diagnose issues",
		Long: `Run diagnostics for docsmcp, or for one knowledge base.

Checks:
  - Docs directory exists and is readable (with a base name)
  - Data directory is writable
  - Disk space (100MB minimum)
  - Embedding provider answers, and its dimension matches the index
  - File descriptor limits (1024 minimum)

Without a base name the provider check uses the config defaults.`,
		Example: `  docsmcp doctor
  docsmcp doctor handbook --verbose
  docsmcp doctor --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), cmd, a, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Skip the embedding provider check")

	return cmd
}

func runDoctor(ctx context.Context, cmd *cobra.Command, a *app, args []string, opts doctorOptions) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}

	target := preflight.Target{DataDir: cfg.DataDir}
	if len(args) == 1 {
		b, err := cfg.GetBase(args[0])
		if err != nil {
			return err
		}
		target.Base = b.Name
		target.DocsPath = b.DocsPath
		target.Embed = cfg.EmbedConfig(b)
		target.IndexDimension = b.EmbeddingDimension
	} else {
		target.Embed = cfg.EmbedConfig(cfg.NewBase("", ""))
	}
	if opts.offline {
		target.Embed.Provider = ""
	}

	checker := preflight.New(
		preflight.WithVerbose(opts.verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := checker.RunAll(ctx, target)

	if opts.jsonOutput {
		if err := outputJSON(cmd, checker, results); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return dmerrors.New(dmerrors.ErrCodeInternal, "system check failed", nil).
			WithSuggestion("Fix the failed checks above and run 'docsmcp doctor' again")
	}
	return nil
}

// JSONOutput is the structure for JSON output.
type JSONOutput struct {
	Status   string            `json:"status"`
	Checks   []JSONCheckResult `json:"checks"`
	Warnings []string          `json:"warnings,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

// JSONCheckResult is a single check result for JSON output.
type JSONCheckResult struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Required bool   `json:"required"`
	Details  string `json:"details,omitempty"`
}

func outputJSON(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	out := JSONOutput{
		Status: checker.SummaryStatus(results),
		Checks: make([]JSONCheckResult, 0, len(results)),
	}
	for _, r := range results {
		out.Checks = append(out.Checks, JSONCheckResult{
			Name:     r.Name,
			Status:   r.Status.String(),
			Message:  r.Message,
			Required: r.Required,
			Details:  r.Details,
		})
		switch {
		case r.IsCritical():
			out.Errors = append(out.Errors, r.Name+": "+r.Message)
		case r.Status != preflight.StatusPass:
			out.Warnings = append(out.Warnings, r.Name+": "+r.Message)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
