// Package repository persists assessment records and streams them back for aggregation.
package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"slices"
	"sort"

	"icmm/pkg/schema"
)

// OrderByCreatedAt is the only supported ordering field.
const OrderByCreatedAt = "createdAt"

// ErrUnsupportedOrder is returned for an unknown StreamOptions.OrderBy.
var ErrUnsupportedOrder = errors.New("unsupported order field")

// ErrInvalidCollection is returned for collection names outside [A-Za-z0-9_-]{1,64}.
var ErrInvalidCollection = errors.New("invalid collection name")

var collectionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// StreamOptions controls StreamAll ordering and size. The zero value streams
// every record oldest first.
type StreamOptions struct {
	OrderBy    string
	Descending bool
	Limit      int // 0 = no limit
}

// Store persists immutable assessment records grouped by collection.
type Store interface {
	// Create stores a copy of rec and returns its ID. An empty rec.ID gets a generated one.
	Create(ctx context.Context, collection string, rec *schema.AssessmentRecord) (string, error)

	// StreamAll yields the records of a collection. Iteration stops at the first error
	// the consumer declines to continue past.
	StreamAll(ctx context.Context, collection string, opts StreamOptions) iter.Seq2[schema.AssessmentRecord, error]

	Close() error
}

// Collect drains a record stream into a slice, stopping at the first error.
func Collect(seq iter.Seq2[schema.AssessmentRecord, error]) ([]schema.AssessmentRecord, error) {
	var out []schema.AssessmentRecord
	for rec, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func checkCollection(name string) error {
	if !collectionPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

func checkOptions(opts StreamOptions) error {
	if opts.OrderBy != "" && opts.OrderBy != OrderByCreatedAt {
		return fmt.Errorf("%w: %q", ErrUnsupportedOrder, opts.OrderBy)
	}
	if opts.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", opts.Limit)
	}
	return nil
}

// prepareRecord validates the collection and returns a detached copy of rec with an ID.
func prepareRecord(collection string, rec *schema.AssessmentRecord) (schema.AssessmentRecord, error) {
	if err := checkCollection(collection); err != nil {
		return schema.AssessmentRecord{}, err
	}
	if rec == nil {
		return schema.AssessmentRecord{}, errors.New("record is nil")
	}

	cp := cloneRecord(*rec)
	if cp.ID == "" {
		id, err := schema.NewAssessmentID()
		if err != nil {
			return schema.AssessmentRecord{}, fmt.Errorf("generate id: %w", err)
		}
		cp.ID = id
	}
	return cp, nil
}

func cloneRecord(rec schema.AssessmentRecord) schema.AssessmentRecord {
	rec.Answers = slices.Clone(rec.Answers)
	return rec
}

// orderRecords sorts records in place and applies the limit.
// Input is expected in insertion order; ties on CreatedAt keep insertion order ascending
// and reverse it descending.
func orderRecords(records []schema.AssessmentRecord, opts StreamOptions) []schema.AssessmentRecord {
	if opts.Descending {
		slices.Reverse(records)
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		})
	} else {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		})
	}

	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}
	return records
}

// sliceSeq yields pre-loaded records, checking ctx between items.
func sliceSeq(ctx context.Context, records []schema.AssessmentRecord) iter.Seq2[schema.AssessmentRecord, error] {
	return func(yield func(schema.AssessmentRecord, error) bool) {
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				yield(schema.AssessmentRecord{}, err)
				return
			}
			if !yield(cloneRecord(rec), nil) {
				return
			}
		}
	}
}

func errSeq(err error) iter.Seq2[schema.AssessmentRecord, error] {
	return func(yield func(schema.AssessmentRecord, error) bool) {
		yield(schema.AssessmentRecord{}, err)
	}
}
