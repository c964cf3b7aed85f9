package chunk

// Chunking defaults.
const (
	DefaultMaxChunkSize = 1000
	DefaultChunkOverlap = 100
)

// Options configures how markdown is split into chunks.
// Sizes are measured in characters (runes), not bytes.
type Options struct {
	MaxChunkSize    int  // Maximum characters per chunk (default: 1000)
	ChunkOverlap    int  // Trailing characters carried into the next chunk (default: 100)
	RespectHeadings bool // Split into heading sections before paragraphs (default: true)
}

// DefaultOptions returns the default chunking options.
func DefaultOptions() Options {
	return Options{
		MaxChunkSize:    DefaultMaxChunkSize,
		ChunkOverlap:    DefaultChunkOverlap,
		RespectHeadings: true,
	}
}

// withDefaults replaces invalid sizes with usable values.
// RespectHeadings is left alone; callers wanting the default should start
// from DefaultOptions.
func (o Options) withDefaults() Options {
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = DefaultMaxChunkSize
	}
	if o.ChunkOverlap < 0 {
		o.ChunkOverlap = 0
	}
	return o
}

// Chunk is a retrievable slice of a markdown document.
type Chunk struct {
	Content   string // Trimmed chunk text
	Index     int    // 0-based position across the whole document
	StartLine int    // 1-indexed, counted on the stripped text
	EndLine   int    // Inclusive
	Heading   string // Nearest enclosing heading, empty in flat mode
}

// section is a heading-delimited region of stripped markdown.
type section struct {
	heading   string
	level     int
	content   string
	startLine int
	endLine   int
}
