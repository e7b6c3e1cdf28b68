package repository

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"icmm/pkg/schema"
)

// MemoryStore keeps records in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]schema.AssessmentRecord
	ids         map[string]bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]schema.AssessmentRecord),
		ids:         make(map[string]bool),
	}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, collection string, rec *schema.AssessmentRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	cp, err := prepareRecord(collection, rec)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := collection + "/" + cp.ID
	if s.ids[key] {
		return "", fmt.Errorf("record %s already exists in %s", cp.ID, collection)
	}
	s.ids[key] = true
	s.collections[collection] = append(s.collections[collection], cp)

	return cp.ID, nil
}

// StreamAll implements Store.
func (s *MemoryStore) StreamAll(ctx context.Context, collection string, opts StreamOptions) iter.Seq2[schema.AssessmentRecord, error] {
	if err := checkCollection(collection); err != nil {
		return errSeq(err)
	}
	if err := checkOptions(opts); err != nil {
		return errSeq(err)
	}

	s.mu.RLock()
	records := make([]schema.AssessmentRecord, len(s.collections[collection]))
	copy(records, s.collections[collection])
	s.mu.RUnlock()

	return sliceSeq(ctx, orderRecords(records, opts))
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
