package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_HeadingSections(t *testing.T) {
	// Given: a document with two headings
	text := "# Getting Started\n\nIntro.\n\n## Install\n\nRun install."

	// When: chunking with default options
	chunks := Split(text, DefaultOptions())

	// Then: each section becomes a chunk with its heading and line span
	require.Len(t, chunks, 2)

	assert.Contains(t, chunks[0].Content, "Getting Started")
	assert.Equal(t, "Getting Started", chunks[0].Heading)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 4, chunks[0].EndLine)

	assert.Equal(t, "Install", chunks[1].Heading)
	assert.Equal(t, "## Install\n\nRun install.", chunks[1].Content)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, 5, chunks[1].StartLine)
	assert.Equal(t, 7, chunks[1].EndLine)
}

func TestChunk_EmptyInput_ReturnsNoChunks(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "whitespace", text: "  \n\n\t \n"},
		{name: "only mdx markup", text: "import Tabs from '@theme/Tabs'\n\n<Banner />\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, DefaultOptions())
			assert.NotNil(t, chunks)
			assert.Empty(t, chunks)
		})
	}
}

func TestChunk_PreambleBeforeFirstHeading_IsKept(t *testing.T) {
	// Given: text before the first heading
	text := "Some preamble.\n\n# Title\n\nBody."

	// When: chunking
	chunks := Split(text, DefaultOptions())

	// Then: the preamble is its own chunk without a heading
	require.Len(t, chunks, 2)
	assert.Equal(t, "Some preamble.", chunks[0].Content)
	assert.Empty(t, chunks[0].Heading)
	assert.Equal(t, "Title", chunks[1].Heading)
}

func TestChunk_HeadingInsideCodeFence_DoesNotSplit(t *testing.T) {
	// Given: a shell comment inside a fenced block
	text := "# Setup\n\n```bash\n# install deps\nnpm ci\n```"

	// When: chunking
	chunks := Split(text, DefaultOptions())

	// Then: the fence stays in the Setup section
	require.Len(t, chunks, 1)
	assert.Equal(t, "Setup", chunks[0].Heading)
	assert.Contains(t, chunks[0].Content, "npm ci")
}

func TestChunk_LargeSection_SplitsOnParagraphsWithOverlap(t *testing.T) {
	// Given: a section of three 300-character paragraphs
	p1 := strings.Repeat("a", 300)
	p2 := strings.Repeat("b", 300)
	p3 := strings.Repeat("c", 300)
	text := "# H\n\n" + p1 + "\n\n" + p2 + "\n\n" + p3
	opts := Options{MaxChunkSize: 500, ChunkOverlap: 50, RespectHeadings: true}

	// When: chunking
	chunks := Split(text, opts)

	// Then: three chunks, each seeded with the previous tail
	require.Len(t, chunks, 3)

	assert.Equal(t, "# H\n\n"+p1, chunks[0].Content)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)

	assert.Equal(t, strings.Repeat("a", 50)+"\n\n"+p2, chunks[1].Content)
	assert.Equal(t, 5, chunks[1].StartLine)
	assert.Equal(t, 5, chunks[1].EndLine)

	assert.Equal(t, strings.Repeat("b", 50)+"\n\n"+p3, chunks[2].Content)
	assert.Equal(t, 7, chunks[2].StartLine)
	assert.Equal(t, 7, chunks[2].EndLine)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "H", c.Heading)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 500)
	}
}

func TestChunk_OversizedParagraph_IsNotBroken(t *testing.T) {
	// Given: one paragraph longer than the limit
	big := strings.Repeat("x", 1500)
	text := "# Big\n\n" + big

	// When: chunking with the default limit
	chunks := Split(text, DefaultOptions())

	// Then: the paragraph is emitted whole after the overlap
	require.Len(t, chunks, 2)
	assert.Equal(t, "# Big", chunks[0].Content)
	assert.Equal(t, "# Big\n\n"+big, chunks[1].Content)
}

func TestChunk_OversizedParagraph_KeepsFullOverlap(t *testing.T) {
	// Given: a fitting paragraph followed by one that alone breaks the limit
	p1 := strings.Repeat("a", 120)
	big := strings.Repeat("z", 300)
	text := p1 + "\n\n" + big
	opts := Options{MaxChunkSize: 200, ChunkOverlap: 30, RespectHeadings: true}

	// When: chunking
	chunks := Split(text, opts)

	// Then: the oversized chunk is the whole overlap plus the paragraph
	require.Len(t, chunks, 2)
	assert.Equal(t, p1, chunks[0].Content)
	assert.Equal(t, strings.Repeat("a", 30)+"\n\n"+big, chunks[1].Content)
	assert.Equal(t, 3, chunks[1].StartLine)
}

func TestChunk_SizeBound(t *testing.T) {
	// Given: mixed paragraph sizes, some over the limit
	var paras []string
	for i := 0; i < 40; i++ {
		paras = append(paras, strings.Repeat("word ", (i*37)%90+1))
	}
	text := "# Doc\n\n" + strings.Join(paras, "\n\n")

	for _, respect := range []bool{true, false} {
		opts := Options{MaxChunkSize: 200, ChunkOverlap: 40, RespectHeadings: respect}

		// When: chunking
		chunks := Split(text, opts)

		// Then: only chunks holding a single oversized unit exceed the limit
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			if utf8.RuneCountInString(c.Content) <= opts.MaxChunkSize {
				continue
			}
			units := strings.Split(c.Content, "\n")
			var longest int
			for _, u := range units {
				if n := utf8.RuneCountInString(u); n > longest {
					longest = n
				}
			}
			assert.Greater(t, longest, opts.MaxChunkSize-opts.ChunkOverlap,
				"oversized chunk must contain a unit that alone nearly fills the limit")
		}
	}
}

func TestChunk_EveryParagraphIsCovered(t *testing.T) {
	// Given: many distinct paragraphs
	var paras []string
	for i := 0; i < 25; i++ {
		paras = append(paras, "Paragraph "+strings.Repeat("z", i*7)+" end.")
	}
	text := "# Notes\n\n" + strings.Join(paras, "\n\n")

	// When: chunking with a small limit
	chunks := Split(text, Options{MaxChunkSize: 150, ChunkOverlap: 20, RespectHeadings: true})

	// Then: every paragraph appears whole in some chunk
	for _, p := range paras {
		found := false
		for _, c := range chunks {
			if strings.Contains(c.Content, p) {
				found = true
				break
			}
		}
		assert.True(t, found, "paragraph missing from chunks: %q", p)
	}
}

func TestChunk_FlatMode(t *testing.T) {
	// Given: a document chunked without heading awareness
	text := "# Getting Started\n\nIntro.\n\n## Install\n\nRun install."
	opts := DefaultOptions()
	opts.RespectHeadings = false

	// When: chunking
	chunks := Split(text, opts)

	// Then: a single chunk with no heading spans the whole text
	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].Heading)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 7, chunks[0].EndLine)
	assert.Equal(t, text, chunks[0].Content)
}

func TestChunk_FlatMode_SplitsOnLines(t *testing.T) {
	// Given: ten 30-character lines and a 100-character limit
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, strings.Repeat(string(rune('a'+i)), 30))
	}
	opts := Options{MaxChunkSize: 100, ChunkOverlap: 10, RespectHeadings: false}

	// When: chunking
	chunks := Split(strings.Join(lines, "\n"), opts)

	// Then: chunks respect the limit, carry overlap, and number lines
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
	assert.Equal(t, 4, chunks[1].StartLine)
	assert.True(t, strings.HasPrefix(chunks[1].Content, strings.Repeat("c", 10)))
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 100)
	}
	assert.Equal(t, 10, chunks[len(chunks)-1].EndLine)
}

func TestChunk_IsDeterministic(t *testing.T) {
	text := "# A\n\n" + strings.Repeat("alpha beta gamma. ", 80) + "\n\n## B\n\nshort"
	opts := Options{MaxChunkSize: 300, ChunkOverlap: 30, RespectHeadings: true}

	first := Split(text, opts)
	second := New(opts).Chunk(text)

	assert.Equal(t, first, second)
}

func TestChunk_IndexSpansWholeDocument(t *testing.T) {
	text := "# One\n\nfirst\n\n# Two\n\nsecond\n\n# Three\n\nthird"

	chunks := Split(text, DefaultOptions())

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestNew_InvalidOptions_UseDefaults(t *testing.T) {
	c := New(Options{MaxChunkSize: 0, ChunkOverlap: -5})

	assert.Equal(t, DefaultMaxChunkSize, c.Options().MaxChunkSize)
	assert.Equal(t, 0, c.Options().ChunkOverlap)
}

func TestLastRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "hello", n: 2, want: "lo"},
		{in: "hello", n: 10, want: "hello"},
		{in: "héllo", n: 4, want: "éllo"},
		{in: "abc", n: 0, want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, lastRunes(tt.in, tt.n))
	}
}
