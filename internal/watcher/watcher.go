package watcher

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
	// OpRename indicates a file or directory was renamed away.
	OpRename
	// OpIgnoreChange indicates a .gitignore inside the tree changed, which
	// can add or remove any number of documents.
	OpIgnoreChange
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpIgnoreChange:
		return "IGNORE_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a file system event.
type FileEvent struct {
	// Path is relative to the watched root, "/"-separated.
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Options configures the watcher behavior.
type Options struct {
	// Debounce is the quiet period before a batch is emitted.
	// Default: 500ms
	Debounce time.Duration

	// PollInterval is the scan interval when polling.
	// Default: 5s
	PollInterval time.Duration

	// EventBufferSize is the number of batches buffered for the consumer.
	// Default: 100
	EventBufferSize int

	// Exclude holds gitignore-style patterns relative to the root.
	Exclude []string

	// Extensions lists the file extensions reported, lower case.
	// Default: .md, .mdx
	Extensions []string

	// ForcePolling skips fsnotify.
	ForcePolling bool

	// Logger receives dropped-event warnings. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		Debounce:        500 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 100,
		Extensions:      []string{".md", ".mdx"},
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = defaults.Debounce
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if len(o.Extensions) == 0 {
		o.Extensions = defaults.Extensions
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func (o Options) wantsFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range o.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
