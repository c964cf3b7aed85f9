package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo describes one knowledge base for `docsmcp status`.
type StatusInfo struct {
	Name        string    `json:"name"`
	Root        string    `json:"root"`
	Description string    `json:"description,omitempty"`
	Documents   int       `json:"documents"`
	Chunks      int       `json:"chunks"`
	Embeddings  int       `json:"embeddings"`
	IndexSize   int64     `json:"index_size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Provider       string `json:"provider"`
	Model          string `json:"model"`
	Dimensions     int    `json:"dimensions"`
	ProviderStatus string `json:"provider_status"` // "ready", "offline", "unchecked"

	Consistent bool `json:"consistent"`
}

// StatusRenderer displays base status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n", r.styles.Header.Render("Knowledge base: "+info.Name))
	if info.Description != "" {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Label.Render(info.Description))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintf(r.out, "  Root:       %s\n", info.Root)
	_, _ = fmt.Fprintf(r.out, "  Documents:  %d\n", info.Documents)
	_, _ = fmt.Fprintf(r.out, "  Chunks:     %d\n", info.Chunks)
	_, _ = fmt.Fprintf(r.out, "  Index size: %s\n", FormatBytes(info.IndexSize))
	if !info.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Created:    %s\n", formatTime(info.CreatedAt))
	}
	if !info.UpdatedAt.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Updated:    %s\n", formatTime(info.UpdatedAt))
	}
	integrity := r.styles.Success.Render("ok")
	if !info.Consistent {
		integrity = r.styles.Error.Render(fmt.Sprintf("%d chunks, %d embeddings", info.Chunks, info.Embeddings))
	}
	_, _ = fmt.Fprintf(r.out, "  Integrity:  %s\n", integrity)
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Embedder:")
	_, _ = fmt.Fprintf(r.out, "    Provider:   %s\n", info.Provider)
	_, _ = fmt.Fprintf(r.out, "    Model:      %s\n", info.Model)
	_, _ = fmt.Fprintf(r.out, "    Dimensions: %d\n", info.Dimensions)
	if info.ProviderStatus != "" {
		_, _ = fmt.Fprintf(r.out, "    Status:     %s\n", r.renderStatus(info.ProviderStatus))
	}

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready":
		return r.styles.Success.Render(status)
	case "offline":
		return r.styles.Warning.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

// formatTime formats a time relative to now.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
