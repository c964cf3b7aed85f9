// Package mcp exposes a documentation base to AI agents over the Model
// Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// Custom MCP error codes for docsmcp.
const (
	// ErrCodeIndexNotFound indicates the base has no usable index.
	ErrCodeIndexNotFound = -32001

	// ErrCodeEmbeddingFailed indicates the query could not be embedded.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeFileNotFound indicates a file does not exist under the root.
	ErrCodeFileNotFound = -32004

	// ErrCodeFileTooLarge indicates a file is too large to return.
	ErrCodeFileTooLarge = -32005

	// ErrCodeAccessDenied indicates a path outside the documentation root.
	ErrCodeAccessDenied = -32006

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is a tool failure with a protocol code and a message meant for
// the agent.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors, keeping the structured
// error's message and suggestion and choosing the code from its error code.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var me *MCPError
	if errors.As(err, &me) {
		return me
	}

	var de *dmerrors.DocsError
	if errors.As(err, &de) {
		return mapDocsError(de)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapDocsError(de *dmerrors.DocsError) *MCPError {
	message := de.Message
	if de.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", de.Message, de.Suggestion)
	}

	switch de.Code {
	case dmerrors.ErrCodeNotFound:
		return &MCPError{Code: ErrCodeFileNotFound, Message: message}
	case dmerrors.ErrCodePathTraversal:
		return &MCPError{Code: ErrCodeAccessDenied, Message: "Access denied: " + message}
	case dmerrors.ErrCodeFileTooLarge:
		return &MCPError{Code: ErrCodeFileTooLarge, Message: message}
	case dmerrors.ErrCodeCorruptIndex, dmerrors.ErrCodeInconsistentIndex:
		return &MCPError{Code: ErrCodeIndexNotFound, Message: message}
	case dmerrors.ErrCodeEmbeddingFailed, dmerrors.ErrCodeProviderUnavailable:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	case dmerrors.ErrCodeProviderTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	}

	switch de.Category {
	case dmerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case dmerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
