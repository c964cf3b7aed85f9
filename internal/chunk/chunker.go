// Package chunk splits markdown documents into retrieval-sized chunks.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// headingPattern matches ATX headings: # Title, ## Title, etc.
var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

const (
	paragraphSep = "\n\n"
	lineSep      = "\n"
)

// Chunker splits markdown into chunks. It holds no state beyond its
// options and is safe for concurrent use.
type Chunker struct {
	opts Options
}

// New creates a Chunker with the given options.
func New(opts Options) *Chunker {
	return &Chunker{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (c *Chunker) Options() Options {
	return c.opts
}

// Split chunks text with the given options.
func Split(text string, opts Options) []Chunk {
	return New(opts).Chunk(text)
}

// Chunk strips markup from text and splits the remainder into chunks.
// The same input always produces the same output. Empty or
// whitespace-only input yields no chunks.
func (c *Chunker) Chunk(text string) []Chunk {
	cleaned := StripMarkup(text)
	if cleaned == "" {
		return []Chunk{}
	}

	var chunks []Chunk
	if c.opts.RespectHeadings {
		for _, s := range parseSections(cleaned) {
			chunks = append(chunks, c.splitSection(s)...)
		}
	} else {
		chunks = c.splitLines(cleaned)
	}

	for i := range chunks {
		chunks[i].Index = i
	}
	if chunks == nil {
		return []Chunk{}
	}
	return chunks
}

// parseSections partitions text at heading lines. Lines inside fenced
// code blocks never start a section. Sections with no visible content
// are dropped, which discards an empty preamble before the first heading.
func parseSections(text string) []section {
	lines := strings.Split(text, "\n")

	var sections []section
	current := section{startLine: 1}
	var body []string

	closeSection := func(endLine int) {
		content := strings.Join(body, "\n")
		if strings.TrimSpace(content) == "" {
			return
		}
		current.content = content
		current.endLine = endLine
		sections = append(sections, current)
	}

	inFence := false
	for i, line := range lines {
		lineNum := i + 1
		if isFence(line) {
			inFence = !inFence
		}

		if !inFence {
			if m := headingPattern.FindStringSubmatch(line); m != nil {
				closeSection(lineNum - 1)
				current = section{
					heading:   strings.TrimSpace(m[2]),
					level:     len(m[1]),
					startLine: lineNum,
				}
				body = nil
			}
		}
		body = append(body, line)
	}
	closeSection(len(lines))

	return sections
}

// splitSection emits a section as one chunk when it fits, otherwise
// splits it on paragraph boundaries. A paragraph is never broken, so a
// single oversized paragraph produces an oversized chunk.
func (c *Chunker) splitSection(s section) []Chunk {
	trimmed := strings.TrimSpace(s.content)
	if trimmed == "" {
		return nil
	}
	if runeLen(trimmed) <= c.opts.MaxChunkSize {
		return []Chunk{{
			Content:   trimmed,
			StartLine: s.startLine,
			EndLine:   s.endLine,
			Heading:   s.heading,
		}}
	}

	var chunks []Chunk
	var buf string
	line := s.startLine
	chunkStart, lastEnd := s.startLine, s.startLine

	for _, para := range strings.Split(s.content, paragraphSep) {
		paraStart := line
		paraEnd := line + strings.Count(para, "\n")
		line = paraEnd + 2 // skip the blank separator line

		if strings.TrimSpace(para) == "" {
			continue
		}

		switch {
		case buf == "":
			buf = para
			chunkStart = paraStart
		case runeLen(buf)+len(paragraphSep)+runeLen(para) > c.opts.MaxChunkSize:
			chunks = appendChunk(chunks, buf, chunkStart, lastEnd, s.heading)
			buf = c.seed(buf, para, paragraphSep)
			chunkStart = paraStart
		default:
			buf += paragraphSep + para
		}
		lastEnd = paraEnd
	}

	if lastEnd > s.endLine {
		lastEnd = s.endLine
	}
	return appendChunk(chunks, buf, chunkStart, lastEnd, s.heading)
}

// splitLines is the flat splitter used when headings are ignored.
func (c *Chunker) splitLines(text string) []Chunk {
	lines := strings.Split(text, "\n")

	var chunks []Chunk
	buf := lines[0]
	chunkStart := 1

	for i := 1; i < len(lines); i++ {
		lineNum := i + 1
		next := lines[i]
		if runeLen(buf)+len(lineSep)+runeLen(next) > c.opts.MaxChunkSize && strings.TrimSpace(buf) != "" {
			chunks = appendChunk(chunks, buf, chunkStart, lineNum-1, "")
			buf = c.seed(buf, next, lineSep)
			chunkStart = lineNum
			continue
		}
		buf += lineSep + next
	}

	return appendChunk(chunks, buf, chunkStart, len(lines), "")
}

// seed starts the buffer that follows a closed chunk: the trailing
// overlap of prev, then next. The overlap shrinks so it never pushes a
// fitting next unit past the size limit. A next unit that is oversized on
// its own already breaks the limit and keeps the full overlap.
func (c *Chunker) seed(prev, next, sep string) string {
	n := c.opts.ChunkOverlap
	if runeLen(next) <= c.opts.MaxChunkSize {
		if room := c.opts.MaxChunkSize - runeLen(next) - len(sep); room < n {
			n = room
		}
	}
	if n <= 0 {
		return next
	}
	return lastRunes(prev, n) + sep + next
}

// appendChunk adds buf as a chunk unless it is blank.
func appendChunk(chunks []Chunk, buf string, start, end int, heading string) []Chunk {
	content := strings.TrimSpace(buf)
	if content == "" {
		return chunks
	}
	if end < start {
		end = start
	}
	return append(chunks, Chunk{
		Content:   content,
		StartLine: start,
		EndLine:   end,
		Heading:   heading,
	})
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// lastRunes returns the last n runes of s.
func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := len(s); i > 0; {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
		count++
		if count == n {
			return s[i:]
		}
	}
	return s
}
