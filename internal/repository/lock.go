package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"
)

// LockFile represents the metadata stored in the lock file.
type LockFile struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	Owner     string    `json:"owner"` // "server" or "cli"
	Timestamp time.Time `json:"timestamp"`
}

// FileLock is an advisory flock shared between processes using the same data directory.
// The kernel drops the lock when the holding process exits, so a lock never goes stale.
type FileLock struct {
	path  string
	owner string
	file  *os.File
}

// lockRetryInterval is how often Acquire retries a held lock.
const lockRetryInterval = 10 * time.Millisecond

// NewFileLock creates a new file lock.
func NewFileLock(path, owner string) *FileLock {
	return &FileLock{
		path:  path,
		owner: owner,
	}
}

// TryAcquire attempts to take the lock without waiting.
func (l *FileLock) TryAcquire() error {
	if l.file != nil {
		return fmt.Errorf("lock %s already held by this handle", l.path)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("Failed to close lock file during error handling", "error", closeErr)
		}

		if existing, readErr := l.readLockFile(); readErr == nil {
			age := time.Since(existing.Timestamp).Round(time.Second)
			return fmt.Errorf("data directory locked by %s (PID %d, %v ago): %w",
				existing.Owner, existing.PID, age, err)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.file = file

	hostname, _ := os.Hostname()
	data, _ := json.MarshalIndent(LockFile{
		PID:       os.Getpid(),
		Hostname:  hostname,
		Owner:     l.owner,
		Timestamp: time.Now(),
	}, "", "  ")

	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("write lock metadata: %w", err)
	}

	return nil
}

// Acquire waits for the lock until ctx is done.
func (l *FileLock) Acquire(ctx context.Context) error {
	for {
		err := l.TryAcquire()
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last attempt: %v)", ctx.Err(), err)
		case <-time.After(lockRetryInterval):
		}
	}
}

// Release releases the file lock. The lock file itself is left in place.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("Failed to release flock", "error", err)
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// readLockFile reads the current lock metadata.
func (l *FileLock) readLockFile() (*LockFile, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}

	var lock LockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, err
	}

	return &lock, nil
}
