package mcp

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ResourceScheme prefixes document resource URIs: docs://<base>/<path>.
const ResourceScheme = "docs://"

// RegisterResources publishes every indexed document as an MCP resource.
// Reads go through the docs service, so the root containment check
// applies to resources as well.
func (s *Server) RegisterResources(ctx context.Context) (int, error) {
	docs, err := s.docs.ListFiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}

	for _, d := range docs {
		desc := d.Path
		if d.Title != "" {
			desc = d.Title + " (" + d.Path + ")"
		}
		s.mcp.AddResource(
			&mcp.Resource{
				Name:        path.Base(d.Path),
				URI:         s.ResourceURI(d.Path),
				Description: desc,
				MIMEType:    MimeTypeForPath(d.Path),
			},
			s.makeDocumentHandler(d.Path),
		)
	}

	s.logger.Info("registered resources", "count", len(docs))
	return len(docs), nil
}

// ResourceURI returns the resource URI of a document path.
func (s *Server) ResourceURI(rel string) string {
	return ResourceScheme + s.base + "/" + strings.TrimPrefix(rel, "/")
}

// makeDocumentHandler creates a read handler for one document path.
func (s *Server) makeDocumentHandler(rel string) mcp.ResourceHandler {
	return func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return s.handleReadResource(ctx, rel)
	}
}

func (s *Server) handleReadResource(ctx context.Context, rel string) (*mcp.ReadResourceResult, error) {
	content, err := s.readFile(ctx, rel)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      s.ResourceURI(rel),
				MIMEType: MimeTypeForPath(rel),
				Text:     content,
			},
		},
	}, nil
}

// MimeTypeForPath returns the MIME type of an indexed document. MDX is
// served as markdown since clients have no dedicated type for it.
func MimeTypeForPath(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".mdx", ".markdown":
		return "text/markdown"
	default:
		return "text/plain"
	}
}
