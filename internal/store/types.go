// Package store persists documents, chunks and their embeddings in one
// SQLite database per knowledge base and answers exact nearest-neighbour
// queries over the stored vectors.
package store

import "time"

// Index metadata keys written by init.
const (
	MetaName      = "name"
	MetaProvider  = "provider"
	MetaModel     = "model"
	MetaDimension = "dimension"
	MetaRoot      = "root"
	MetaCreatedAt = "created_at"
	MetaUpdatedAt = "updated_at"
)

// Document is one indexed markdown file.
type Document struct {
	ID        int64
	Path      string // Relative to the base root, slash-separated
	Title     string
	ModTime   time.Time
	Hash      string // sha256 hex of the raw file bytes
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentInput carries the fields the indexer knows about a file.
type DocumentInput struct {
	Path    string
	Title   string
	ModTime time.Time
	Hash    string
}

// ChunkInput is a chunk ready to be stored.
type ChunkInput struct {
	DocumentID int64
	Content    string
	ChunkIndex int
	StartLine  int
	EndLine    int
	Heading    string
}

// SearchResult is one nearest-neighbour hit.
type SearchResult struct {
	ChunkID    int64
	DocumentID int64
	Path       string
	Title      string
	Content    string
	ChunkIndex int
	StartLine  int
	EndLine    int
	Heading    string
	Distance   float64 // Euclidean distance to the query
	Score      float64 // 1 / (1 + Distance)
}

// ReplaceResult reports what ReplaceDocument did.
type ReplaceResult struct {
	DocumentID int64
	Inserted   bool // The document row was new
	Removed    int  // Chunks purged before the re-insert
	Added      int  // Chunks inserted
}

// Stats holds row counts.
type Stats struct {
	Documents  int
	Chunks     int
	Embeddings int
}
