package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

func paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestDiscover_FindsMarkdownAndSkipsExcludedDirs(t *testing.T) {
	// Given: a tree mixing docs, dependencies and VCS data
	root := t.TempDir()
	for _, rel := range []string{
		"index.md",
		"guides/b.MDX",
		"guides/a.md",
		"notes.txt",
		"node_modules/pkg/README.md",
		".git/description.md",
		"vendor/lib/doc.md",
		"api/vendor/x.md",
	} {
		writeDoc(t, root, rel, "# x\n")
	}

	// When: discovering
	files, err := Discover(context.Background(), root, nil)

	// Then: only docs outside excluded directories, sorted
	require.NoError(t, err)
	assert.Equal(t, []string{"guides/a.md", "guides/b.MDX", "index.md"}, paths(files))
	assert.Equal(t, filepath.Join(root, "guides", "a.md"), files[0].AbsPath)
	assert.EqualValues(t, 4, files[0].Size)
	assert.False(t, files[0].ModTime.IsZero())
}

func TestDiscover_HonorsGitignoreAndExcludePatterns(t *testing.T) {
	// Given: root and nested .gitignore files plus a user exclude
	root := t.TempDir()
	writeDoc(t, root, ".gitignore", "drafts/\n*.wip.md\n")
	writeDoc(t, root, "guides/.gitignore", "/local.md\n")
	for _, rel := range []string{
		"keep.md",
		"idea.wip.md",
		"drafts/one.md",
		"guides/local.md",
		"guides/deep/local.md",
		"archive/old.md",
	} {
		writeDoc(t, root, rel, "text\n")
	}

	// When: discovering with an extra exclude
	files, err := Discover(context.Background(), root, []string{"archive/"})

	// Then: ignored paths are gone, nested rules stay scoped
	require.NoError(t, err)
	assert.Equal(t, []string{"guides/deep/local.md", "keep.md"}, paths(files))
}

func TestDiscover_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeDoc(t, outside, "secret.md", "# secret\n")
	writeDoc(t, root, "real.md", "# real\n")
	if err := os.Symlink(filepath.Join(outside, "secret.md"), filepath.Join(root, "link.md")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	files, err := Discover(context.Background(), root, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"real.md"}, paths(files))
}

func TestDiscover_RootErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.md")
	writeDoc(t, dir, "file.md", "x")

	_, err := Discover(context.Background(), filepath.Join(dir, "missing"), nil)
	assert.True(t, errors.Is(err, dmerrors.ErrNotFound))

	_, err = Discover(context.Background(), file, nil)
	assert.Equal(t, dmerrors.ErrCodeInvalidPath, dmerrors.GetCode(err))
}

func TestDiscover_Cancelled(t *testing.T) {
	root := docsTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Discover(ctx, root, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsMarkdown(t *testing.T) {
	assert.True(t, IsMarkdown("a.md"))
	assert.True(t, IsMarkdown("dir/b.MDX"))
	assert.False(t, IsMarkdown("c.markdown"))
	assert.False(t, IsMarkdown("md"))
}

func TestFingerprint(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Fingerprint([]byte("abc")))
	assert.NotEqual(t, Fingerprint([]byte("a")), Fingerprint([]byte("a ")))
}
