package repository

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FileTx stages file writes in temp files and swaps them into place on Commit.
// On a failed commit, files already swapped are restored from their backups.
type FileTx struct {
	staged    map[string]string // target path -> temp path
	order     []string
	stamp     int64
	committed bool
}

// NewFileTx creates a new transaction.
func NewFileTx() *FileTx {
	return &FileTx{
		staged: make(map[string]string),
		stamp:  time.Now().UnixNano(),
	}
}

// WriteFile stages content for path. Nothing is visible until Commit.
func (tx *FileTx) WriteFile(path string, content []byte) error {
	if tx.committed {
		return fmt.Errorf("transaction already committed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tempPath, ok := tx.staged[path]
	if !ok {
		tempPath = fmt.Sprintf("%s.tmp.%d", path, tx.stamp)
		tx.staged[path] = tempPath
		tx.order = append(tx.order, path)
	}

	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	return nil
}

// ReadFile reads the staged content of path, or the committed file if nothing is staged.
func (tx *FileTx) ReadFile(path string) ([]byte, error) {
	if tempPath, ok := tx.staged[path]; ok {
		path = tempPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Commit renames every staged file over its target.
func (tx *FileTx) Commit() error {
	if tx.committed {
		return fmt.Errorf("transaction already committed")
	}

	type swapped struct {
		target string
		backup string // empty when the target did not exist
	}
	var done []swapped

	restore := func() error {
		for i := len(done) - 1; i >= 0; i-- {
			s := done[i]
			if s.backup == "" {
				if err := os.Remove(s.target); err != nil && !os.IsNotExist(err) {
					return err
				}
				continue
			}
			if err := os.Rename(s.backup, s.target); err != nil {
				return err
			}
		}
		return nil
	}

	for _, target := range tx.order {
		backup := ""
		if _, err := os.Stat(target); err == nil {
			backup = fmt.Sprintf("%s.backup.%d", target, tx.stamp)
			if err := os.Link(target, backup); err != nil {
				if rbErr := restore(); rbErr != nil {
					return fmt.Errorf("backup %s failed and rollback failed: %w, rollback error: %v", target, err, rbErr)
				}
				return fmt.Errorf("backup %s (rolled back): %w", target, err)
			}
		}

		if err := os.Rename(tx.staged[target], target); err != nil {
			if backup != "" {
				_ = os.Remove(backup)
			}
			if rbErr := restore(); rbErr != nil {
				return fmt.Errorf("commit %s failed and rollback failed: %w, rollback error: %v", target, err, rbErr)
			}
			return fmt.Errorf("commit %s (rolled back): %w", target, err)
		}
		done = append(done, swapped{target: target, backup: backup})
	}

	for _, s := range done {
		if s.backup == "" {
			continue
		}
		if err := os.Remove(s.backup); err != nil {
			slog.Warn("Failed to remove backup file", "path", s.backup, "error", err)
		}
	}

	tx.committed = true
	return nil
}

// Rollback discards all staged writes.
func (tx *FileTx) Rollback() error {
	if tx.committed {
		return fmt.Errorf("cannot rollback committed transaction")
	}

	for _, target := range tx.order {
		if err := os.Remove(tx.staged[target]); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("rollback: %w", err)
		}
	}

	return nil
}
