package index

import (
	"fmt"
	"time"
)

// FileError is a per-file failure or warning recorded during a run.
type FileError struct {
	Path    string
	Err     error
	Warning bool
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Summary is the observable result of Init and Update.
type Summary struct {
	Added    int // New documents ingested
	Updated  int // Known documents re-ingested
	Deleted  int // Vanished documents whose chunks were purged
	Pruned   int // Vanished document rows removed (Update with Prune)
	Skipped  int // Unchanged documents
	Errors   int
	Warnings int
	Chunks   int // Chunks written in this run
	Failures []FileError
	Duration time.Duration
}

func (s *Summary) fail(path string, err error) {
	s.Errors++
	s.Failures = append(s.Failures, FileError{Path: path, Err: err})
}

func (s *Summary) warn(path string, err error) {
	s.Warnings++
	s.Failures = append(s.Failures, FileError{Path: path, Err: err, Warning: true})
}

// Changed reports whether the run modified the index.
func (s *Summary) Changed() bool {
	return s.Added+s.Updated+s.Deleted+s.Pruned > 0
}

// String renders the counters on one line.
func (s *Summary) String() string {
	return fmt.Sprintf("added=%d updated=%d deleted=%d skipped=%d errors=%d warnings=%d chunks=%d",
		s.Added, s.Updated, s.Deleted, s.Skipped, s.Errors, s.Warnings, s.Chunks)
}
