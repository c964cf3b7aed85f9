package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout, "timed out"},
		{"canceled", context.Canceled, ErrCodeTimeout, "canceled"},
		{"plain error hides details", errors.New("sql: database is locked"), ErrCodeInternalError, "Internal server error."},
		{"not found", dmerrors.NotFound("file", "a.md"), ErrCodeFileNotFound, "not found"},
		{"traversal", dmerrors.PathTraversal("../x"), ErrCodeAccessDenied, "Access denied"},
		{"too large", dmerrors.New(dmerrors.ErrCodeFileTooLarge, "big.md is too large to return", nil), ErrCodeFileTooLarge, "too large"},
		{"corrupt index", dmerrors.New(dmerrors.ErrCodeCorruptIndex, "index is corrupt", nil), ErrCodeIndexNotFound, "corrupt"},
		{"provider", dmerrors.ProviderUnavailable("ollama", "connection refused", nil), ErrCodeEmbeddingFailed, "ollama"},
		{"provider timeout", dmerrors.New(dmerrors.ErrCodeProviderTimeout, "embedding timed out", nil), ErrCodeTimeout, "timed out"},
		{"validation", dmerrors.New(dmerrors.ErrCodeQueryEmpty, "query cannot be empty", nil), ErrCodeInvalidParams, "query cannot be empty"},
		{"dimension mismatch", dmerrors.DimensionMismatch(768, 384), ErrCodeInvalidParams, "768"},
		{"wrapped docs error", fmt.Errorf("search: %w", dmerrors.NotFound("base", "x")), ErrCodeFileNotFound, "not found"},
		{"mcp error passes through", NewInvalidParamsError("bad"), ErrCodeInvalidParams, "bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)

			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Contains(t, got.Message, tt.wantMsg)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := dmerrors.New(dmerrors.ErrCodeQueryEmpty, "query cannot be empty", nil).
		WithSuggestion("Describe what you are looking for")

	got := MapError(err)

	assert.Equal(t, "query cannot be empty. Describe what you are looking for", got.Message)
}

func TestMCPError_Error(t *testing.T) {
	err := &MCPError{Code: ErrCodeInvalidParams, Message: "bad input"}

	assert.Equal(t, "MCP error -32602: bad input", err.Error())
}
