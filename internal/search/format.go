package search

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/docsmcp/internal/store"
)

// FormatResults renders results as markdown, one section per hit with its
// source path, heading, line span and percentage score.
func FormatResults(r *Results) string {
	if r.Empty() {
		query := ""
		if r != nil {
			query = r.Query
		}
		return fmt.Sprintf("No relevant documentation found for \"%s\".", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Results for \"%s\"\n\n", r.Query)
	fmt.Fprintf(&sb, "Found %d result", len(r.Items))
	if len(r.Items) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, item := range r.Items {
		formatResult(&sb, i+1, item)
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// formatResult writes a single hit.
func formatResult(sb *strings.Builder, num int, r Result) {
	fmt.Fprintf(sb, "### %d. %s (lines %s, %.1f%%)\n", num, r.Path, lineSpan(r.StartLine, r.EndLine), r.Percent())
	if r.Heading != "" {
		fmt.Fprintf(sb, "**Section:** %s\n", r.Heading)
	}
	sb.WriteString("\n")
	sb.WriteString(strings.TrimSpace(r.Content))
	sb.WriteString("\n\n---\n\n")
}

func lineSpan(start, end int) string {
	if end <= start {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

// FormatFileList renders the indexed documents as a flat listing.
func FormatFileList(docs []*store.Document) string {
	if len(docs) == 0 {
		return "No documents are indexed yet. Run 'docsmcp update' to index the docs directory."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Indexed documents (%d)\n\n", len(docs))
	for _, d := range docs {
		if d.Title != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", d.Path, d.Title)
		} else {
			fmt.Fprintf(&sb, "- %s\n", d.Path)
		}
	}
	return sb.String()
}
