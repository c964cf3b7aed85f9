package index

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/gitignore"
)

// DefaultExcludes are directories never descended into: version control,
// dependency trees and docsmcp's own data.
var DefaultExcludes = []string{
	".git/", ".hg/", ".svn/", ".jj/", ".bzr/",
	"node_modules/", "vendor/", "bower_components/",
	".venv/", "venv/", "__pycache__/",
	".docsmcp/",
}

// File is a markdown file found under a base root.
type File struct {
	Path    string // Relative to the root, "/"-separated; the document identity
	AbsPath string
	Size    int64
	ModTime time.Time
}

// IsMarkdown reports whether name has a .md or .mdx extension.
func IsMarkdown(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".mdx"
}

// Discover returns every markdown file under root sorted by path. It skips
// DefaultExcludes, the extra exclude patterns, anything matched by a
// .gitignore inside the tree, and symlinks.
func Discover(ctx context.Context, root string, exclude []string) ([]File, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, dmerrors.NotFound("directory", root)
	}
	if err != nil {
		return nil, dmerrors.New(dmerrors.ErrCodeFilePermission, "cannot access "+root, err)
	}
	if !info.IsDir() {
		return nil, dmerrors.New(dmerrors.ErrCodeInvalidPath, root+" is not a directory", nil)
	}

	ignore := gitignore.New(DefaultExcludes...)
	for _, p := range exclude {
		ignore.Add(p, "")
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." {
				if ignore.Match(rel, true) {
					return fs.SkipDir
				}
			} else {
				rel = ""
			}
			// Patterns of a nested .gitignore apply below its directory.
			return ignore.AddFile(filepath.Join(path, ".gitignore"), rel)
		}

		if !d.Type().IsRegular() || !IsMarkdown(d.Name()) || ignore.Match(rel, false) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, File{
			Path:    rel,
			AbsPath: path,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, dmerrors.New(dmerrors.ErrCodeFilePermission, "failed to walk "+root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
