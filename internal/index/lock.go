package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often a blocked Lock polls the lock file.
const lockRetryDelay = 50 * time.Millisecond

// BuildLock serialises index builds across processes that share an
// artifact. The lock file lives next to the artifact as <artifact>.lock.
type BuildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewBuildLock creates the lock guarding artifact.
func NewBuildLock(artifact string) *BuildLock {
	path := artifact + ".lock"
	return &BuildLock{
		path:  path,
		flock: flock.New(path),
	}
}

// Lock blocks until the lock is acquired or ctx is done.
func (l *BuildLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	ok, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire build lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("failed to acquire build lock: %w", ctx.Err())
	}
	l.locked = true
	return nil
}

// TryLock acquires the lock without blocking. It reports false when another
// process holds it.
func (l *BuildLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	ok, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire build lock: %w", err)
	}
	l.locked = ok
	return ok, nil
}

// Unlock releases the lock. Calling it on an unlocked lock is a no-op.
func (l *BuildLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release build lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *BuildLock) Path() string {
	return l.path
}
