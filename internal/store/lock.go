package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
)

// IndexLock is a cross-process lock guarding an on-disk index. An embedded
// bleve index may be opened by a single process only; the lock turns a second
// opener into an ERR_202_INDEX_LOCKED error instead of a hang.
type IndexLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewIndexLock returns the lock for the index at indexPath.
// The lock file lives next to the index as <indexPath>.lock.
func NewIndexLock(indexPath string) *IndexLock {
	lockPath := indexPath + ".lock"
	return &IndexLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock acquires the lock without blocking.
func (l *IndexLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fperrors.New(fperrors.ErrCodeIndexLocked, "index is in use by another process", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Stop the other fpsearch process or point index_path at a different directory")
	}

	l.locked = true
	return nil
}

// Unlock releases the lock. Calling it on an unlocked IndexLock is a no-op.
func (l *IndexLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *IndexLock) Path() string {
	return l.path
}

// IsLocked reports whether this process holds the lock.
func (l *IndexLock) IsLocked() bool {
	return l.locked
}
