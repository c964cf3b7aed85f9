package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// asDocsError finds the first DocsError in the chain, wrapping anything
// else as an internal error.
func asDocsError(err error) *DocsError {
	var de *DocsError
	if errors.As(err, &de) {
		return de
	}
	return Wrap(ErrCodeInternal, err)
}

// FormatForUser returns a user-friendly error message.
// If debug is true, the underlying cause is included.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	var de *DocsError
	if !errors.As(err, &de) {
		return err.Error()
	}

	var sb strings.Builder

	sb.WriteString("Error: ")
	sb.WriteString(de.Message)
	sb.WriteString("\n")

	if de.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(de.Suggestion)
		sb.WriteString("\n")
	}

	if debug && de.Cause != nil {
		sb.WriteString("\nCause: ")
		sb.WriteString(de.Cause.Error())
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n[%s]", de.Code))

	return sb.String()
}

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	de := asDocsError(err)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", de.Message))
	if de.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", de.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", de.Code))

	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	de := asDocsError(err)
	je := jsonError{
		Code:       de.Code,
		Message:    de.Message,
		Category:   string(de.Category),
		Severity:   string(de.Severity),
		Details:    de.Details,
		Suggestion: de.Suggestion,
		Retryable:  de.Retryable,
	}
	if de.Cause != nil {
		je.Cause = de.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	var de *DocsError
	if !errors.As(err, &de) {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": de.Code,
		"message":    de.Message,
		"category":   string(de.Category),
		"severity":   string(de.Severity),
		"retryable":  de.Retryable,
	}
	if de.Cause != nil {
		result["cause"] = de.Cause.Error()
	}
	if de.Suggestion != "" {
		result["suggestion"] = de.Suggestion
	}
	for k, v := range de.Details {
		result["detail_"+k] = v
	}

	return result
}
