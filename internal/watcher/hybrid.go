package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/docsmcp/internal/gitignore"
)

// HybridWatcher watches a docs tree with fsnotify, or by polling when
// fsnotify is unavailable, and emits debounced batches of events for
// markdown files and .gitignore changes.
type HybridWatcher struct {
	opts      Options
	logger    *slog.Logger
	fsWatcher *fsnotify.Watcher
	poller    *PollingWatcher
	debouncer *Debouncer
	events    chan []FileEvent
	errors    chan error
	stopCh    chan struct{}
	dropped   atomic.Uint64

	mu       sync.RWMutex
	ignore   *gitignore.Matcher
	rootPath string
	polling  bool
	stopped  bool
}

// NewHybridWatcher creates a watcher. fsnotify is tried first unless
// opts.ForcePolling is set.
func NewHybridWatcher(opts Options) (*HybridWatcher, error) {
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		opts:      opts,
		logger:    opts.Logger,
		debouncer: NewDebouncer(opts.Debounce, opts.Logger),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		ignore:    gitignore.New(".git/"),
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			h.fsWatcher = fsw
		} else {
			h.logger.Warn("fsnotify unavailable, falling back to polling", slog.String("error", err.Error()))
		}
	}
	h.polling = h.fsWatcher == nil
	return h, nil
}

// Start watches path until ctx is done or Stop is called. It blocks.
func (h *HybridWatcher) Start(ctx context.Context, root string) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", root)
	}

	h.mu.Lock()
	h.rootPath = absPath
	h.mu.Unlock()
	h.loadIgnore()

	go h.forwardDebouncedEvents(ctx)

	if !h.polling {
		if err := h.addRecursive(absPath); err != nil {
			// Usually the inotify watch limit; polling still works.
			h.logger.Warn("fsnotify setup failed, falling back to polling", slog.String("error", err.Error()))
			_ = h.fsWatcher.Close()
			h.mu.Lock()
			h.fsWatcher = nil
			h.polling = true
			h.mu.Unlock()
		}
	}

	if h.polling {
		return h.startPolling(ctx)
	}
	return h.startFsnotify(ctx)
}

func (h *HybridWatcher) startFsnotify(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

func (h *HybridWatcher) startPolling(ctx context.Context) error {
	h.mu.Lock()
	h.poller = NewPollingWatcher(h.opts.PollInterval, h.accept, h.logger)
	poller := h.poller
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case event, ok := <-poller.Events():
				if !ok {
					return
				}
				if path.Base(event.Path) == ".gitignore" {
					h.loadIgnore()
					event.Operation = OpIgnoreChange
				}
				h.debouncer.Add(event)
			case err, ok := <-poller.Errors():
				if !ok {
					return
				}
				h.emitError(err)
			}
		}
	}()

	err := poller.Start(ctx, h.root())
	if ctx.Err() != nil {
		_ = h.Stop()
	}
	return err
}

// accept reports whether an entry is tracked. For directories, false
// prunes the subtree.
func (h *HybridWatcher) accept(rel string, isDir bool) bool {
	if rel == "" || rel == "." {
		return isDir
	}
	if !isDir && path.Base(rel) == ".gitignore" {
		return true
	}
	if !isDir && !h.opts.wantsFile(rel) {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.ignore.Match(rel, isDir)
}

func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(h.root(), event.Name)
	if err != nil || rel == "." {
		return
	}
	rel = filepath.ToSlash(rel)
	now := time.Now()

	if path.Base(rel) == ".gitignore" {
		if event.Op&fsnotify.Chmod == event.Op {
			return
		}
		h.loadIgnore()
		h.debouncer.Add(FileEvent{Path: rel, Operation: OpIgnoreChange, Timestamp: now})
		return
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		op := OpDelete
		if event.Op&fsnotify.Rename != 0 {
			op = OpRename
		}
		// The entry is gone so its type is unknown; anything that is
		// not a tracked file may have been a directory of documents.
		isDir := !h.opts.wantsFile(rel)
		if h.accept(rel, isDir) {
			h.debouncer.Add(FileEvent{Path: rel, Operation: op, IsDir: isDir, Timestamp: now})
		}

	case event.Op&fsnotify.Create != 0:
		info, err := os.Lstat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if h.accept(rel, true) {
				h.addNewDir(event.Name)
			}
			return
		}
		if info.Mode().IsRegular() && h.accept(rel, false) {
			h.debouncer.Add(FileEvent{Path: rel, Operation: OpCreate, Timestamp: now})
		}

	case event.Op&fsnotify.Write != 0:
		if h.accept(rel, false) {
			h.debouncer.Add(FileEvent{Path: rel, Operation: OpModify, Timestamp: now})
		}
	}
}

// addNewDir watches a directory that appeared after Start and reports the
// documents already inside it, as when a folder is moved into the tree.
func (h *HybridWatcher) addNewDir(dir string) {
	if err := h.addRecursive(dir); err != nil {
		h.emitError(err)
	}
	root := h.root()
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if h.accept(rel, false) {
			h.debouncer.Add(FileEvent{Path: rel, Operation: OpCreate, Timestamp: time.Now()})
		}
		return nil
	})
}

// addRecursive adds dir and every non-ignored directory below it.
func (h *HybridWatcher) addRecursive(dir string) error {
	root := h.root()
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		if rel != "." && !h.accept(filepath.ToSlash(rel), true) {
			return filepath.SkipDir
		}
		return h.fsWatcher.Add(p)
	})
}

// loadIgnore rebuilds the matcher from the exclude patterns and every
// .gitignore in the tree.
func (h *HybridWatcher) loadIgnore() {
	root := h.root()
	m := gitignore.New(".git/")
	for _, p := range h.opts.Exclude {
		m.Add(p, "")
	}

	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && m.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ".gitignore" {
			base := path.Dir(rel)
			if base == "." {
				base = ""
			}
			if err := m.AddFile(p, base); err != nil {
				h.logger.Warn("failed to read .gitignore",
					slog.String("path", p),
					slog.String("error", err.Error()))
			}
		}
		return nil
	})

	h.mu.Lock()
	h.ignore = m
	h.mu.Unlock()
}

func (h *HybridWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case batch, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			h.emitEvents(batch)
		}
	}
}

func (h *HybridWatcher) emitEvents(batch []FileEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped || len(batch) == 0 {
		return
	}
	select {
	case h.events <- batch:
	default:
		count := h.dropped.Add(1)
		h.logger.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count))
	}
}

func (h *HybridWatcher) emitError(err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}
	select {
	case h.errors <- err:
	default:
	}
}

// Stop stops the watcher and closes the Events and Errors channels.
// Safe to call multiple times.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	close(h.stopCh)
	fsw, poller := h.fsWatcher, h.poller
	close(h.events)
	close(h.errors)
	h.mu.Unlock()

	h.debouncer.Stop()
	if fsw != nil {
		_ = fsw.Close()
	}
	if poller != nil {
		_ = poller.Stop()
	}
	return nil
}

// Events returns the channel of debounced batches.
func (h *HybridWatcher) Events() <-chan []FileEvent {
	return h.events
}

// Errors returns the channel of non-fatal watcher errors.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errors
}

// DroppedBatches returns the number of batches dropped because the
// consumer fell behind.
func (h *HybridWatcher) DroppedBatches() uint64 {
	return h.dropped.Load()
}

// WatcherType returns "fsnotify" or "polling".
func (h *HybridWatcher) WatcherType() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.polling {
		return "polling"
	}
	return "fsnotify"
}

func (h *HybridWatcher) root() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rootPath
}
