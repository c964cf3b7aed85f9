package chunk

import (
	"regexp"
	"strings"
)

var (
	// Matches ESM import/export statements at the start of a line.
	esmLinePattern = regexp.MustCompile(`^\s*(?:import|export)\s`)

	// Matches self-closing components: <Component ... />
	selfClosingComponentPattern = regexp.MustCompile(`<[A-Z][a-zA-Z0-9]*[^>]*/\s*>`)

	// Matches an opening component tag and captures its name.
	componentOpenPattern = regexp.MustCompile(`<([A-Z][a-zA-Z0-9]*)(?:\s[^>]*)?>`)

	// Matches any remaining opening or closing component tag.
	componentTagPattern = regexp.MustCompile(`</?[A-Z][a-zA-Z0-9]*[^>]*>`)

	// Matches two or more blank lines.
	blankRunPattern = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)
)

// StripMarkup removes MDX constructs that carry no prose: import/export
// lines, self-closing components, paired component blocks and leftover
// component tags. Runs of blank lines collapse to a single blank line and
// the result is trimmed.
//
// Paired blocks end at the first closing tag of the same name, so nested
// components sharing a name are not removed correctly.
func StripMarkup(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = removeESMLines(text)
	text = selfClosingComponentPattern.ReplaceAllString(text, "")
	text = removePairedComponents(text)
	text = componentTagPattern.ReplaceAllString(text, "")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// removeESMLines drops import/export lines outside fenced code blocks.
func removeESMLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	inFence := false
	for _, line := range lines {
		if isFence(line) {
			inFence = !inFence
		}
		if !inFence && esmLinePattern.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// removePairedComponents removes <Name ...> ... </Name> blocks.
// An opening tag with no matching close is left for the bare-tag pass.
func removePairedComponents(text string) string {
	var b strings.Builder
	rest := text
	for {
		loc := componentOpenPattern.FindStringSubmatchIndex(rest)
		if loc == nil {
			b.WriteString(rest)
			return b.String()
		}

		closeTag := "</" + rest[loc[2]:loc[3]] + ">"
		end := strings.Index(rest[loc[1]:], closeTag)
		if end < 0 {
			b.WriteString(rest[:loc[1]])
			rest = rest[loc[1]:]
			continue
		}

		b.WriteString(rest[:loc[0]])
		rest = rest[loc[1]+end+len(closeTag):]
	}
}

// isFence reports whether line opens or closes a fenced code block.
func isFence(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}
