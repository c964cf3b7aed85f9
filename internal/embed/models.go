package embed

import "strings"

// knownDimensions lists output sizes of common embedding models so a base
// can be created without a probe request.
var knownDimensions = map[ProviderType]map[string]int{
	ProviderOllama: {
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"snowflake-arctic-embed": 1024,
		"bge-m3":                 1024,
		"embeddinggemma":         768,
		"qwen3-embedding:0.6b":   1024,
	},
	ProviderOpenAI: {
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	},
}

// KnownDimensions returns the output dimension of a well-known model.
// Ollama tags are tried verbatim first, then without the tag.
func KnownDimensions(provider ProviderType, model string) (int, bool) {
	table, ok := knownDimensions[provider]
	if !ok {
		return 0, false
	}
	if dims, ok := table[model]; ok {
		return dims, true
	}
	if base, _, found := strings.Cut(model, ":"); found {
		if dims, ok := table[base]; ok {
			return dims, true
		}
	}
	return 0, false
}
