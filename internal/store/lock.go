package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// lockRetryDelay is how often a waiting writer re-tries the lock.
const lockRetryDelay = 100 * time.Millisecond

// WriteLock is the cross-process single-writer lock of one base, a
// <db>.lock file held with flock(2). Readers never take it.
type WriteLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewWriteLock creates the lock for the database at dbPath.
func NewWriteLock(dbPath string) *WriteLock {
	lockPath := dbPath + ".lock"
	return &WriteLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Acquire takes the lock, waiting up to wait for another writer to finish.
// A zero wait tries once. Failure to get the lock yields ErrIndexLocked.
func (l *WriteLock) Acquire(ctx context.Context, wait time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	var (
		acquired bool
		err      error
	)
	if wait <= 0 {
		acquired, err = l.flock.TryLock()
	} else {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		acquired, err = l.flock.TryLockContext(waitCtx, lockRetryDelay)
		if err != nil && ctx.Err() == nil && waitCtx.Err() != nil {
			// Our own wait ran out; that is contention, not a failure.
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return dmerrors.New(dmerrors.ErrCodeIndexLocked,
			"another docsmcp process is writing to this knowledge base", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Wait for the running init/update/watch to finish")
	}

	l.locked = true
	return nil
}

// Release releases the lock. It is safe to call more than once.
func (l *WriteLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *WriteLock) Path() string {
	return l.path
}

// IsLocked returns true if the lock is currently held.
func (l *WriteLock) IsLocked() bool {
	return l.locked
}
