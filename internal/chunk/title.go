package chunk

import (
	"path/filepath"
	"regexp"
	"strings"
)

// titlePattern matches a level-1 ATX heading.
var titlePattern = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t]*$`)

// ExtractTitle returns the text of the first level-1 heading in content,
// falling back to the file name without its markdown extension.
func ExtractTitle(content, filename string) string {
	if m := titlePattern.FindStringSubmatch(content); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title
		}
	}

	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	if strings.EqualFold(ext, ".md") || strings.EqualFold(ext, ".mdx") {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
