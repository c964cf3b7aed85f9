package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	format string // "text", "json"
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <name> <query>",
		Short: "Search a knowledge base",
		Long: `Embed the query and return the closest chunks of the base, best first.

Scores are 1/(1+distance), shown as a percentage.`,
		Example: `  docsmcp search handbook "how do I rotate credentials"
  docsmcp search handbook deployment checklist -n 10
  docsmcp search handbook "error codes" --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args[1:], " ")
			return runSearch(cmd.Context(), cmd, a, args[0], query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 5, "Maximum number of results (1-50)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, a *app, name, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return dmerrors.ValidationError(fmt.Sprintf("unknown format %q", opts.format), nil).
			WithSuggestion("Use --format text or --format json")
	}

	o, err := a.openBase(ctx, name, openParams{})
	if err != nil {
		return err
	}
	defer func() { _ = o.Close() }()

	svc, err := search.New(o.store, o.embedder, o.base.DocsPath, search.WithLogger(a.logger))
	if err != nil {
		return err
	}

	a.logger.Info("search_started", slog.String("base", name), slog.String("query", query), slog.Int("limit", opts.limit))
	results, err := svc.Search(ctx, query, opts.limit)
	if err != nil {
		return err
	}
	a.logger.Info("search_complete", slog.Int("results", len(results.Items)),
		slog.Int64("duration_ms", results.Duration.Milliseconds()))

	if opts.format == "json" {
		return writeSearchJSON(cmd, results)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(search.FormatResults(results), "\n"))
	return err
}

// searchResultJSON is the JSON form of one hit.
type searchResultJSON struct {
	Path      string  `json:"path"`
	Title     string  `json:"title,omitempty"`
	Heading   string  `json:"heading,omitempty"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Score     float64 `json:"score"`
	Distance  float64 `json:"distance"`
	Content   string  `json:"content"`
}

type searchOutputJSON struct {
	Query      string             `json:"query"`
	Limit      int                `json:"limit"`
	DurationMS int64              `json:"duration_ms"`
	Results    []searchResultJSON `json:"results"`
}

func writeSearchJSON(cmd *cobra.Command, r *search.Results) error {
	out := searchOutputJSON{
		Query:      r.Query,
		Limit:      r.Limit,
		DurationMS: r.Duration.Milliseconds(),
		Results:    make([]searchResultJSON, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		out.Results = append(out.Results, searchResultJSON{
			Path:      item.Path,
			Title:     item.Title,
			Heading:   item.Heading,
			StartLine: item.StartLine,
			EndLine:   item.EndLine,
			Score:     item.Score,
			Distance:  item.Distance,
			Content:   item.Content,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
