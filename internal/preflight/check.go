package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/docsmcp/internal/embed"
	"github.com/Aman-CERP/docsmcp/internal/output"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Target describes what to check. Empty fields skip their checks.
type Target struct {
	// Base is the knowledge base name, used in messages.
	Base string
	// DocsPath is the directory the base indexes.
	DocsPath string
	// DataDir holds base databases and logs.
	DataDir string
	// Embed is the provider configuration; Provider empty skips the probe.
	Embed embed.Config
	// IndexDimension is the dimension recorded in the index, 0 if unknown.
	IndexDimension int
}

// EmbedderFactory builds an embedder; it is embed.NewEmbedder in production.
type EmbedderFactory func(ctx context.Context, cfg embed.Config) (embed.Embedder, error)

// Checker performs preflight validation checks.
type Checker struct {
	verbose     bool
	output      io.Writer
	newEmbedder EmbedderFactory
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose prints check details.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// WithEmbedderFactory replaces the embedder constructor used by the
// provider check.
func WithEmbedderFactory(f EmbedderFactory) Option {
	return func(c *Checker) {
		c.newEmbedder = f
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		output:      os.Stdout,
		newEmbedder: embed.NewEmbedder,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check that applies to t.
func (c *Checker) RunAll(ctx context.Context, t Target) []CheckResult {
	var results []CheckResult

	if t.DocsPath != "" {
		results = append(results, c.CheckDocsPath(t.DocsPath))
	}
	if t.DataDir != "" {
		results = append(results, c.CheckWritePermissions(t.DataDir))
		results = append(results, c.CheckDiskSpace(t.DataDir))
	}
	if t.Embed.Provider != "" {
		results = append(results, c.CheckProvider(ctx, t.Embed, t.IndexDimension))
	}
	results = append(results, c.CheckFileDescriptors())

	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns "ready", "ready_with_warnings" or "failed".
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status == StatusWarn || r.Status == StatusFail {
			hasWarnings = true
		}
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	w := output.New(c.output)

	for _, r := range results {
		line := fmt.Sprintf("%s: %s", r.Name, r.Message)
		switch {
		case r.Status == StatusPass:
			w.Success(line)
		case r.IsCritical():
			w.Error(line)
		default:
			w.Warning(line)
		}
		if r.Details != "" && (c.verbose || r.Status != StatusPass) {
			w.Status("", r.Details)
		}
	}

	w.Newline()
	w.Header("Status: " + strings.ToUpper(c.SummaryStatus(results)))
}

// CheckDocsPath checks that the docs directory exists and can be listed.
func (c *Checker) CheckDocsPath(path string) CheckResult {
	result := CheckResult{
		Name:     "docs_path",
		Required: true,
	}

	info, err := os.Stat(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot access %s", path)
		result.Details = err.Error()
		return result
	}
	if !info.IsDir() {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not a directory", path)
		return result
	}
	if _, err := os.ReadDir(path); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read %s", path)
		result.Details = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = path
	return result
}

// CheckWritePermissions checks that dir can be created and written to.
func (c *Checker) CheckWritePermissions(dir string) CheckResult {
	result := CheckResult{
		Name:     "data_dir",
		Required: true,
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s", dir)
		result.Details = err.Error()
		return result
	}

	f, err := os.CreateTemp(dir, ".docsmcp-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %s", dir)
		result.Details = err.Error()
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = filepath.Clean(dir) + " is writable"
	return result
}
