package cmd

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/config"
	"github.com/Aman-CERP/docsmcp/internal/embed"
	"github.com/Aman-CERP/docsmcp/internal/output"
	"github.com/Aman-CERP/docsmcp/internal/store"
	"github.com/Aman-CERP/docsmcp/internal/ui"
)

// statusOptions holds CLI flags for status.
type statusOptions struct {
	jsonOutput bool
	check      bool
}

func newStatusCmd(a *app) *cobra.Command {
	var opts statusOptions

	cmd := &cobra.Command{
		Use:   "status [name]",
		Short: "Show index statistics and provider settings",
		Long: `Show document, chunk and embedding counts, index size, timestamps and
the embedding provider of one base, or of every base when no name is given.

--check probes the provider; without it the provider status is "unchecked".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd, a, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.check, "check", false, "Probe the embedding provider")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, a *app, args []string, opts statusOptions) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = cfg.BaseNames()
	}
	if len(names) == 0 && !opts.jsonOutput {
		output.New(cmd.OutOrStdout()).Status("", "No knowledge bases registered. Create one with 'docsmcp init'.")
		return nil
	}

	infos := make([]ui.StatusInfo, 0, len(names))
	for _, name := range names {
		b, err := cfg.GetBase(name)
		if err != nil {
			return err
		}
		info, err := baseStatus(ctx, cfg, b, opts.check)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if len(args) == 1 {
			return enc.Encode(infos[0])
		}
		return enc.Encode(infos)
	}

	r := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
	for _, info := range infos {
		if err := r.Render(info); err != nil {
			return err
		}
	}
	return nil
}

// baseStatus collects the status of one base from its index.
func baseStatus(ctx context.Context, cfg *config.Config, b *config.Base, check bool) (ui.StatusInfo, error) {
	info := ui.StatusInfo{
		Name:           b.Name,
		Root:           b.DocsPath,
		Description:    b.Description,
		Provider:       b.Provider,
		Model:          b.Model,
		Dimensions:     b.EmbeddingDimension,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.LastUpdated,
		ProviderStatus: "unchecked",
	}

	dbPath := cfg.DBPath(b.Name)
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return info, err
	}
	defer func() { _ = st.Close() }()

	stats, err := st.GetStats(ctx)
	if err != nil {
		return info, err
	}
	info.Documents = stats.Documents
	info.Chunks = stats.Chunks
	info.Embeddings = stats.Embeddings
	info.Consistent = st.CheckConsistency(ctx) == nil
	info.Dimensions = st.Dimensions()
	info.IndexSize = fileSize(dbPath) + fileSize(dbPath+"-wal")

	meta, err := st.Metadata(ctx)
	if err != nil {
		return info, err
	}
	if t, err := time.Parse(time.RFC3339, meta[store.MetaUpdatedAt]); err == nil {
		info.UpdatedAt = t
	}
	if info.CreatedAt.IsZero() {
		if t, err := time.Parse(time.RFC3339, meta[store.MetaCreatedAt]); err == nil {
			info.CreatedAt = t
		}
	}

	if check {
		info.ProviderStatus = probeProvider(ctx, cfg.EmbedConfig(b))
	}
	return info, nil
}

// probeProvider reports "ready" when an embedder can be built, which
// health-checks remote providers.
func probeProvider(ctx context.Context, ecfg embed.Config) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	emb, err := embed.NewEmbedder(ctx, ecfg)
	if err != nil {
		return "offline"
	}
	_ = emb.Close()
	return "ready"
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
