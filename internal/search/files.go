package search

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/store"
)

// MaxReadSize bounds the file size ReadFile returns.
const MaxReadSize int64 = 10 * 1024 * 1024

// File is the content of one document on disk.
type File struct {
	Path    string // As requested, slash-separated
	AbsPath string // Canonical location under the root
	Content string
}

// ReadFile returns the file at rel, resolved against the docs root. The
// path is made absolute and its symlinks are resolved before the
// containment check, so neither "../" segments nor links can reach
// outside the root.
func (s *Service) ReadFile(rel string) (*File, error) {
	if strings.TrimSpace(rel) == "" {
		return nil, dmerrors.New(dmerrors.ErrCodeInvalidPath, "file path is required", nil)
	}

	root, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return nil, dmerrors.NotFound("docs directory", s.root)
	}

	target := rel
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, filepath.FromSlash(rel))
	}
	target, err = filepath.Abs(target)
	if err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeInvalidPath, "invalid file path "+rel, err)
	}
	// A lexical escape is refused before touching the filesystem.
	if !within(root, target) {
		return nil, dmerrors.PathTraversal(rel)
	}

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dmerrors.NotFound("file", rel)
		}
		return nil, dmerrors.New(dmerrors.ErrCodeFilePermission, "cannot resolve "+rel, err)
	}
	if !within(root, resolved) {
		return nil, dmerrors.PathTraversal(rel)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeFilePermission, "cannot read "+rel, err)
	}
	if info.IsDir() {
		return nil, dmerrors.New(dmerrors.ErrCodeInvalidPath, rel+" is a directory", nil).
			WithSuggestion("Use list_files to see the indexed documents")
	}
	if info.Size() > MaxReadSize {
		return nil, dmerrors.New(dmerrors.ErrCodeFileTooLarge, rel+" is too large to return", nil)
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeFilePermission, "cannot read "+rel, err)
	}

	return &File{
		Path:    filepath.ToSlash(rel),
		AbsPath: resolved,
		Content: string(content),
	}, nil
}

// ListFiles returns the indexed documents, ordered by path. It reads the
// index only; files added on disk since the last update are not listed.
func (s *Service) ListFiles(ctx context.Context) ([]*store.Document, error) {
	return s.store.ListDocuments(ctx)
}

// within reports whether path is root or lies beneath it.
func within(root, path string) bool {
	r, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return r == "." || (r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)))
}
