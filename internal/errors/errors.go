package errors

import (
	"errors"
	"fmt"
)

// DocsError is the structured error type for docsmcp.
// It provides rich context for error handling, logging, and user presentation.
type DocsError struct {
	// Code is the unique error code (e.g., "ERR_201_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Sentinels for errors.Is. Matching is by code, so any DocsError carrying
// the same code matches regardless of message.
var (
	ErrNotFound            = &DocsError{Code: ErrCodeNotFound}
	ErrNothingToIndex      = &DocsError{Code: ErrCodeNothingToIndex}
	ErrIndexLocked         = &DocsError{Code: ErrCodeIndexLocked}
	ErrProviderUnavailable = &DocsError{Code: ErrCodeProviderUnavailable}
	ErrDimensionMismatch   = &DocsError{Code: ErrCodeDimensionMismatch}
	ErrPathTraversal       = &DocsError{Code: ErrCodePathTraversal}
	ErrInvalidInput        = &DocsError{Code: ErrCodeInvalidInput}
	ErrBaseExists          = &DocsError{Code: ErrCodeBaseExists}
)

// Error implements the error interface.
func (e *DocsError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocsError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with DocsError.
func (e *DocsError) Is(target error) bool {
	if t, ok := target.(*DocsError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *DocsError) WithDetail(key, value string) *DocsError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *DocsError) WithSuggestion(suggestion string) *DocsError {
	e.Suggestion = suggestion
	return e
}

// WithRetryable overrides the retryable flag derived from the code.
// A provider that rejects a request (bad key, unknown model) is unavailable
// but retrying will not help.
func (e *DocsError) WithRetryable(retryable bool) *DocsError {
	e.Retryable = retryable
	return e
}

// New creates a new DocsError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *DocsError {
	return &DocsError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DocsError from an existing error.
// The error's message becomes the DocsError message.
func Wrap(code string, err error) *DocsError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DocsError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *DocsError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DocsError {
	return New(ErrCodeInternal, message, cause)
}

// StoreError creates an index storage error.
func StoreError(message string, cause error) *DocsError {
	return New(ErrCodeStoreFailed, message, cause)
}

// NotFound reports a missing knowledge base, document or file.
func NotFound(kind, name string) *DocsError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s %q not found", kind, name), nil).
		WithDetail(kind, name)
}

// NothingToIndex reports a directory without any markdown files.
func NothingToIndex(root string) *DocsError {
	return New(ErrCodeNothingToIndex, fmt.Sprintf("no markdown files found under %s", root), nil).
		WithDetail("root", root).
		WithSuggestion("Point the command at a directory containing .md or .mdx files")
}

// ProviderUnavailable reports an embedding backend that is unreachable,
// timed out, or misconfigured.
func ProviderUnavailable(provider, message string, cause error) *DocsError {
	return New(ErrCodeProviderUnavailable, fmt.Sprintf("%s: %s", provider, message), cause).
		WithDetail("provider", provider)
}

// DimensionMismatch reports a vector whose length differs from the index.
func DimensionMismatch(expected, got int) *DocsError {
	return New(ErrCodeDimensionMismatch,
		fmt.Sprintf("embedding dimension mismatch: index uses %d, got %d", expected, got), nil).
		WithDetail("expected", fmt.Sprint(expected)).
		WithDetail("got", fmt.Sprint(got)).
		WithSuggestion("Re-create the knowledge base with 'docsmcp init --force' after changing the embedding model")
}

// PathTraversal reports a requested path that resolves outside its base root.
func PathTraversal(path string) *DocsError {
	return New(ErrCodePathTraversal, fmt.Sprintf("path %q escapes the documentation root", path), nil).
		WithDetail("path", path)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error chain holds a DocsError with Retryable flag set.
func IsRetryable(err error) bool {
	var de *DocsError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	var de *DocsError
	if errors.As(err, &de) {
		return de.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a DocsError.
// Returns empty string if the chain holds no DocsError.
func GetCode(err error) string {
	var de *DocsError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from a DocsError.
// Returns empty string if the chain holds no DocsError.
func GetCategory(err error) Category {
	var de *DocsError
	if errors.As(err, &de) {
		return de.Category
	}
	return ""
}
