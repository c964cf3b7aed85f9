// Package ui renders indexing progress and base status in the terminal.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage is a phase of an indexing run.
type Stage int

const (
	// StageScanning walks the base root for markdown files.
	StageScanning Stage = iota
	// StageIndexing chunks, embeds and stores each file.
	StageIndexing
	// StageCleanup purges documents whose files disappeared.
	StageCleanup
	// StageComplete indicates the run finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "Scanning"
	case StageIndexing:
		return "Indexing"
	case StageCleanup:
		return "Cleanup"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage tag for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageScanning:
		return "SCAN"
	case StageIndexing:
		return "INDEX"
	case StageCleanup:
		return "CLEAN"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent represents a per-file failure or warning.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// StageTimings is the time spent per pipeline step, summed over files.
type StageTimings struct {
	Scan  time.Duration // File discovery
	Chunk time.Duration // Stripping and chunking
	Embed time.Duration // Provider calls
	Store time.Duration // SQLite transactions
}

// EmbedderInfo describes the provider used for a run.
type EmbedderInfo struct {
	Provider   string // "ollama", "openai", "compatible" or "static"
	Model      string
	Dimensions int
}

// CompletionStats contains the final counters of a run.
type CompletionStats struct {
	Base     string
	Files    int
	Added    int
	Updated  int
	Deleted  int
	Skipped  int
	Chunks   int
	Duration time.Duration
	Errors   int
	Warnings int
	Stages   StageTimings
	Embedder EmbedderInfo
}

// Renderer defines the interface for progress display.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	BaseName   string // Shown in the TUI header
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithBaseName sets the knowledge base name shown in the header.
func WithBaseName(name string) ConfigOption {
	return func(c *Config) {
		c.BaseName = name
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer picks the TUI renderer for interactive terminals and the
// plain renderer for pipes, CI, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// Discard is a Renderer that prints nothing, for the MCP server and tests.
type Discard struct{}

func (Discard) Start(context.Context) error  { return nil }
func (Discard) UpdateProgress(ProgressEvent) {}
func (Discard) AddError(ErrorEvent)          {}
func (Discard) Complete(CompletionStats)     {}
func (Discard) Stop() error                  { return nil }

var _ Renderer = Discard{}
