// Package gitignore matches slash-separated relative paths against
// gitignore-style patterns (https://git-scm.com/docs/gitignore).
//
// The indexer feeds it the built-in excluded directories, the user's
// exclude patterns and every .gitignore found under a docs root:
//
//	m := gitignore.New(".git/", "node_modules/")
//	_ = m.AddFile(filepath.Join(root, ".gitignore"), "")
//	_ = m.AddFile(filepath.Join(root, "guides", ".gitignore"), "guides")
//	if m.Match("guides/draft.md", false) { ... }
package gitignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

// Matcher holds compiled patterns. The last matching pattern decides, so a
// later "!keep.md" re-includes what an earlier "*.md" excluded.
// A Matcher is not safe for concurrent mutation.
type Matcher struct {
	rules []rule
}

type rule struct {
	re       *regexp.Regexp
	negate   bool
	dirOnly  bool   // pattern ended with "/"
	anchored bool   // pattern is matched against the path, not a single component
	base     string // directory of the .gitignore that declared it
}

// New creates a matcher from root-level patterns.
func New(patterns ...string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		m.Add(p, "")
	}
	return m
}

// Add compiles one pattern line scoped to base ("" for the root).
// Blank lines and comments are ignored.
func (m *Matcher) Add(pattern, base string) {
	if r, ok := compile(pattern, base); ok {
		m.rules = append(m.rules, r)
	}
}

// AddFile adds every pattern of a .gitignore file, scoped to base.
// A missing file is not an error.
func (m *Matcher) AddFile(path, base string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.Add(sc.Text(), base)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// Match reports whether path is ignored. Paths use "/" and are relative to
// the root the matcher was built for. A file inside an ignored directory is
// ignored too.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = strings.Trim(path, "/")
	if path == "" {
		return false
	}

	ignored := false
	for _, r := range m.rules {
		if r.matches(path, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r rule) matches(path string, isDir bool) bool {
	if r.base != "" {
		if !strings.HasPrefix(path, r.base+"/") {
			return false
		}
		path = path[len(r.base)+1:]
	}

	parts := strings.Split(path, "/")
	for i := range parts {
		// Every component but the last is a directory.
		candIsDir := i < len(parts)-1 || isDir
		if r.dirOnly && !candIsDir {
			continue
		}

		subject := parts[i]
		if r.anchored {
			subject = strings.Join(parts[:i+1], "/")
		}
		if r.re.MatchString(subject) {
			return true
		}
	}
	return false
}

func compile(pattern, base string) (rule, bool) {
	pattern = strings.TrimRight(pattern, " \t\r")
	if strings.HasSuffix(pattern, `\`) {
		pattern += " "
	}
	pattern = strings.TrimLeft(pattern, " \t")
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return rule{}, false
	}

	r := rule{base: strings.Trim(base, "/")}
	switch {
	case strings.HasPrefix(pattern, `\#`), strings.HasPrefix(pattern, `\!`):
		pattern = pattern[1:]
	case strings.HasPrefix(pattern, "!"):
		r.negate = true
		pattern = pattern[1:]
	}

	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimRight(pattern, "/")
	}
	// "doc/frotz" and "/frotz" are relative to the .gitignore directory;
	// a slash-free pattern matches at any depth.
	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimLeft(pattern, "/")
	}
	if strings.Contains(pattern, "/") {
		r.anchored = true
	}
	if pattern == "" {
		return rule{}, false
	}

	re, err := regexp.Compile("^" + translate(pattern) + "$")
	if err != nil {
		return rule{}, false
	}
	r.re = re
	return r, true
}

// translate converts a glob to a regular expression body.
func translate(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch c {
		case '*':
			if strings.HasPrefix(glob[i:], "**/") {
				b.WriteString("(?:.*/)?")
				i += 2
			} else if strings.HasPrefix(glob[i:], "**") {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := glob[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i += end + 1
		case '\\':
			if i+1 < len(glob) {
				i++
				b.WriteString(regexp.QuoteMeta(string(glob[i])))
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}
