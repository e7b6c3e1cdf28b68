package repository

import (
	"context"
	"log/slog"
	"sync"

	"icmm/internal/metrics"
	"icmm/pkg/schema"
)

// LiveStore wraps a Store and pushes a fresh snapshot to subscribers after every Create.
type LiveStore struct {
	Store

	mu   sync.Mutex // guards subs
	subs map[string]map[*subscriber]struct{}

	publishMu sync.Mutex // serializes snapshot delivery so subscribers never go backwards
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan []schema.AssessmentRecord
	closed bool
}

// offer replaces any undelivered snapshot with snap.
func (s *subscriber) offer(snap []schema.AssessmentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// NewLive wraps store.
func NewLive(store Store) *LiveStore {
	return &LiveStore{
		Store: store,
		subs:  make(map[string]map[*subscriber]struct{}),
	}
}

// Create stores the record and notifies subscribers of the collection.
func (l *LiveStore) Create(ctx context.Context, collection string, rec *schema.AssessmentRecord) (string, error) {
	id, err := l.Store.Create(ctx, collection, rec)
	if err != nil {
		return "", err
	}

	l.publish(ctx, collection)
	return id, nil
}

// Subscribe returns a channel that receives the full collection, newest first, right away
// and again after each Create. A slow reader only sees the latest snapshot.
// The channel is closed when ctx is done. Snapshots are shared and must not be modified.
func (l *LiveStore) Subscribe(ctx context.Context, collection string) <-chan []schema.AssessmentRecord {
	sub := &subscriber{ch: make(chan []schema.AssessmentRecord, 1)}

	l.mu.Lock()
	if l.subs[collection] == nil {
		l.subs[collection] = make(map[*subscriber]struct{})
	}
	l.subs[collection][sub] = struct{}{}
	l.mu.Unlock()
	metrics.LiveSubscribers.Inc()

	l.publishMu.Lock()
	if snap, err := l.snapshot(ctx, collection); err != nil {
		slog.Warn("Initial snapshot failed", "collection", collection, "error", err)
	} else {
		sub.offer(snap)
	}
	l.publishMu.Unlock()

	go func() {
		<-ctx.Done()

		l.mu.Lock()
		delete(l.subs[collection], sub)
		if len(l.subs[collection]) == 0 {
			delete(l.subs, collection)
		}
		l.mu.Unlock()

		sub.close()
		metrics.LiveSubscribers.Dec()
	}()

	return sub.ch
}

func (l *LiveStore) subscribers(collection string) []*subscriber {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*subscriber, 0, len(l.subs[collection]))
	for s := range l.subs[collection] {
		out = append(out, s)
	}
	return out
}

func (l *LiveStore) publish(ctx context.Context, collection string) {
	l.publishMu.Lock()
	defer l.publishMu.Unlock()

	subs := l.subscribers(collection)
	if len(subs) == 0 {
		return
	}

	snap, err := l.snapshot(context.WithoutCancel(ctx), collection)
	if err != nil {
		slog.Warn("Snapshot for subscribers failed", "collection", collection, "error", err)
		return
	}

	for _, s := range subs {
		s.offer(snap)
	}
}

func (l *LiveStore) snapshot(ctx context.Context, collection string) ([]schema.AssessmentRecord, error) {
	records, err := Collect(l.Store.StreamAll(ctx, collection, StreamOptions{
		OrderBy:    OrderByCreatedAt,
		Descending: true,
	}))
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []schema.AssessmentRecord{}
	}
	return records, nil
}
