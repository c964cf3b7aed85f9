package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docsmcp/internal/search"
	"github.com/Aman-CERP/docsmcp/internal/store"
	"github.com/Aman-CERP/docsmcp/pkg/version"
)

// ServerName is reported to clients during initialization.
const ServerName = "docsmcp"

// Docs is the read side of a base the server exposes.
type Docs interface {
	Search(ctx context.Context, query string, k int) (*search.Results, error)
	ReadFile(rel string) (*search.File, error)
	ListFiles(ctx context.Context) ([]*store.Document, error)
}

var _ Docs = (*search.Service)(nil)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. It must not write to stdout, which carries
// the protocol.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server is the MCP server for one documentation base.
type Server struct {
	mcp    *mcp.Server
	docs   Docs
	base   string
	logger *slog.Logger
}

// NewServer creates a server exposing docs under the given base name and
// registers its tools.
func NewServer(docs Docs, base string, opts ...Option) (*Server, error) {
	if docs == nil {
		return nil, errors.New("docs service is required")
	}
	if base == "" {
		base = "project"
	}

	s := &Server{
		docs:   docs,
		base:   base,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools/resources
	)
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// Base returns the name of the exposed base.
func (s *Server) Base() string {
	return s.base
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return toolInfos(s.base)
}

// CallTool invokes a tool by name with loosely typed arguments, as decoded
// from JSON. It returns the tool's text payload or an *MCPError.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case ToolSearchDocs:
		query, _ := args["query"].(string)
		return s.searchDocs(ctx, query, intArg(args["limit"]))
	case ToolReadFile:
		path, _ := args["file_path"].(string)
		return s.readFile(ctx, path)
	case ToolListFiles:
		return s.listFiles(ctx)
	default:
		return "", NewMethodNotFoundError(name)
	}
}

// searchDocs runs a query and renders the ranked chunks as markdown.
func (s *Server) searchDocs(ctx context.Context, query string, limit int) (string, error) {
	start := time.Now()
	requestID := generateRequestID()

	if strings.TrimSpace(query) == "" {
		return "", NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	limit = search.ClampLimit(limit)

	s.logger.Info("search_docs started",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("limit", limit))

	results, err := s.docs.Search(ctx, query, limit)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("search_docs failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", MapError(err)
	}

	s.logger.Info("search_docs completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(results.Items)))

	return search.FormatResults(results), nil
}

// readFile returns a document's full text. Paths outside the root are
// refused by the docs service.
func (s *Server) readFile(_ context.Context, path string) (string, error) {
	start := time.Now()
	requestID := generateRequestID()

	if strings.TrimSpace(path) == "" {
		return "", NewInvalidParamsError("file_path parameter is required")
	}

	s.logger.Info("read_file started",
		slog.String("request_id", requestID),
		slog.String("file_path", path))

	file, err := s.docs.ReadFile(path)
	duration := time.Since(start)
	if err != nil {
		s.logger.Warn("read_file failed",
			slog.String("request_id", requestID),
			slog.String("file_path", path),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", MapError(err)
	}

	s.logger.Info("read_file completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("bytes", len(file.Content)))

	return file.Content, nil
}

// listFiles renders the indexed document set.
func (s *Server) listFiles(ctx context.Context) (string, error) {
	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info("list_files started",
		slog.String("request_id", requestID))

	docs, err := s.docs.ListFiles(ctx)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("list_files failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", MapError(err)
	}

	s.logger.Info("list_files completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("file_count", len(docs)))

	return search.FormatFileList(docs), nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	infos := toolInfos(s.base)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: infos[0].Name, Description: infos[0].Description}, s.mcpSearchDocsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: infos[1].Name, Description: infos[1].Description}, s.mcpReadFileHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: infos[2].Name, Description: infos[2].Description}, s.mcpListFilesHandler)

	s.logger.Debug("MCP tools registered", slog.Int("count", len(infos)))
}

// mcpSearchDocsHandler is the MCP SDK handler for the search_docs tool.
func (s *Server) mcpSearchDocsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocsInput) (
	*mcp.CallToolResult,
	any,
	error,
) {
	return toolResult(s.searchDocs(ctx, input.Query, input.Limit))
}

// mcpReadFileHandler is the MCP SDK handler for the read_file tool.
func (s *Server) mcpReadFileHandler(ctx context.Context, _ *mcp.CallToolRequest, input ReadFileInput) (
	*mcp.CallToolResult,
	any,
	error,
) {
	return toolResult(s.readFile(ctx, input.FilePath))
}

// mcpListFilesHandler is the MCP SDK handler for the list_files tool.
func (s *Server) mcpListFilesHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListFilesInput) (
	*mcp.CallToolResult,
	any,
	error,
) {
	return toolResult(s.listFiles(ctx))
}

// toolResult wraps a tool outcome. Failures become tool results flagged
// IsError so the agent sees the message instead of a protocol error.
func toolResult(text string, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: MapError(err).Message}},
		}, nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// Serve runs the server over stdio until ctx is canceled or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves a single session over transport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("Starting MCP server", slog.String("base", s.base))

	err := s.mcp.Run(ctx, transport)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("MCP server stopped with error",
			slog.String("error", err.Error()))
		return fmt.Errorf("mcp server: %w", err)
	}
	s.logger.Info("MCP server stopped gracefully")
	return nil
}

// intArg converts a JSON number argument to int. Missing or non-numeric
// values yield 0, which callers treat as "use the default".
func intArg(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
