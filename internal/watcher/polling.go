package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher detects changes by rescanning the tree on an interval.
// It is the fallback when fsnotify is unavailable.
type PollingWatcher struct {
	interval time.Duration
	// filter decides which entries are tracked; for directories, false
	// prunes the subtree.
	filter func(rel string, isDir bool) bool
	logger *slog.Logger

	mu       sync.Mutex
	state    map[string]fileSnapshot
	events   chan FileEvent
	errors   chan error
	stopCh   chan struct{}
	stopped  bool
	rootPath string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a polling watcher. A nil filter tracks every
// regular file.
func NewPollingWatcher(interval time.Duration, filter func(rel string, isDir bool) bool, logger *slog.Logger) *PollingWatcher {
	if filter == nil {
		filter = func(string, bool) bool { return true }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PollingWatcher{
		interval: interval,
		filter:   filter,
		logger:   logger,
		state:    make(map[string]fileSnapshot),
		events:   make(chan FileEvent, 100),
		errors:   make(chan error, 10),
		stopCh:   make(chan struct{}),
	}
}

// Start records a baseline and then polls until ctx is done or Stop is
// called.
func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}

	p.mu.Lock()
	p.rootPath = absPath
	baseline, err := p.snapshot()
	if err == nil {
		p.state = baseline
	}
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				p.emitError(err)
			}
		}
	}
}

// Stop stops the polling watcher and closes its channels.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of non-fatal scan errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

// snapshot walks the tree. Must be called with the lock held.
func (p *PollingWatcher) snapshot() (map[string]fileSnapshot, error) {
	state := make(map[string]fileSnapshot)
	err := filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped; the root itself must exist.
			if path == p.rootPath {
				return err
			}
			return nil
		}
		rel, err := filepath.Rel(p.rootPath, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if !p.filter(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !p.filter(rel, false) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		state[rel] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	return state, err
}

func (p *PollingWatcher) detectChanges() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	current, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("walk directory for changes: %w", err)
	}

	now := time.Now()
	for rel, snap := range current {
		prev, exists := p.state[rel]
		switch {
		case !exists:
			p.emit(FileEvent{Path: rel, Operation: OpCreate, Timestamp: now})
		case !prev.modTime.Equal(snap.modTime) || prev.size != snap.size:
			p.emit(FileEvent{Path: rel, Operation: OpModify, Timestamp: now})
		}
	}
	for rel := range p.state {
		if _, exists := current[rel]; !exists {
			p.emit(FileEvent{Path: rel, Operation: OpDelete, Timestamp: now})
		}
	}

	p.state = current
	return nil
}

// emit must be called with the lock held.
func (p *PollingWatcher) emit(event FileEvent) {
	select {
	case p.events <- event:
	default:
		p.logger.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()))
	}
}

func (p *PollingWatcher) emitError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	select {
	case p.errors <- err:
	default:
	}
}
