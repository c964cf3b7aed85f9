package mcp

// Tool names.
const (
	ToolSearchDocs = "search_docs"
	ToolReadFile   = "read_file"
	ToolListFiles  = "list_files"
)

// SearchDocsInput defines the input schema for the search_docs tool.
type SearchDocsInput struct {
	Query string `json:"query" jsonschema:"natural-language description of what to find in the documentation"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5, at most 50"`
}

// ReadFileInput defines the input schema for the read_file tool.
type ReadFileInput struct {
	FilePath string `json:"file_path" jsonschema:"path of a document relative to the documentation root, as shown by search_docs or list_files"`
}

// ListFilesInput defines the input schema for the list_files tool (no parameters).
type ListFilesInput struct{}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

func toolInfos(base string) []ToolInfo {
	return []ToolInfo{
		{
			Name: ToolSearchDocs,
			Description: "Semantic search over the " + base + " documentation. Returns the most relevant sections " +
				"with file path, heading, line range and relevance. Use this first to find where a topic is documented.",
		},
		{
			Name: ToolReadFile,
			Description: "Read the full text of one document from the " + base + " documentation. " +
				"Pass a path returned by search_docs or list_files.",
		},
		{
			Name:        ToolListFiles,
			Description: "List every indexed document in the " + base + " documentation with its title.",
		},
	}
}
