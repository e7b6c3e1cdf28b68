package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"icmm/pkg/schema"
)

// collectionFile is the on-disk YAML document of one collection.
type collectionFile struct {
	Collection string                    `yaml:"collection"`
	Records    []schema.AssessmentRecord `yaml:"records"`
}

// FileStore keeps each collection in dataDir/<collection>.yaml.
// Writes go through FileTx under a process-wide flock, so several processes may share a directory.
type FileStore struct {
	dataDir string
	lock    *FileLock
	mu      sync.Mutex
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dataDir, owner string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("repository: create data dir: %w", err)
	}

	return &FileStore{
		dataDir: dataDir,
		lock:    NewFileLock(filepath.Join(dataDir, ".lock"), owner),
	}, nil
}

func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dataDir, collection+".yaml")
}

// Create implements Store.
func (s *FileStore) Create(ctx context.Context, collection string, rec *schema.AssessmentRecord) (string, error) {
	cp, err := prepareRecord(collection, rec)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Acquire(ctx); err != nil {
		return "", fmt.Errorf("acquire lock: %w", err)
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			slog.Warn("Failed to release lock", "error", err)
		}
	}()

	tx := NewFileTx()
	path := s.path(collection)

	doc, err := readCollection(tx, path)
	if err != nil {
		return "", err
	}
	doc.Collection = collection

	for _, existing := range doc.Records {
		if existing.ID == cp.ID {
			return "", fmt.Errorf("record %s already exists in %s", cp.ID, collection)
		}
	}
	doc.Records = append(doc.Records, cp)

	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal collection: %w", err)
	}

	if err := tx.WriteFile(path, data); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("Rollback failed", "error", rbErr)
		}
		return "", fmt.Errorf("write collection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("Rollback failed", "error", rbErr)
		}
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	return cp.ID, nil
}

// StreamAll implements Store. Readers never take the lock; commits are atomic renames.
func (s *FileStore) StreamAll(ctx context.Context, collection string, opts StreamOptions) iter.Seq2[schema.AssessmentRecord, error] {
	if err := checkCollection(collection); err != nil {
		return errSeq(err)
	}
	if err := checkOptions(opts); err != nil {
		return errSeq(err)
	}

	return func(yield func(schema.AssessmentRecord, error) bool) {
		doc, err := readCollection(NewFileTx(), s.path(collection))
		if err != nil {
			yield(schema.AssessmentRecord{}, err)
			return
		}

		for rec, err := range sliceSeq(ctx, orderRecords(doc.Records, opts)) {
			if !yield(rec, err) {
				return
			}
		}
	}
}

func readCollection(tx *FileTx, path string) (*collectionFile, error) {
	doc := &collectionFile{}

	data, err := tx.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("read collection: %w", err)
	}

	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse collection %s: %w", path, err)
	}
	return doc, nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}
