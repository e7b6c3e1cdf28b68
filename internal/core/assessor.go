package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"icmm/internal/analytics"
	"icmm/internal/maturity"
	"icmm/internal/metrics"
	"icmm/internal/repository"
	"icmm/internal/scoring"
	"icmm/pkg/schema"
)

// SaveFailedNotice is shown when a result was computed but could not be stored.
const SaveFailedNotice = "Your results could not be saved. They are shown below but will not appear in the analytics."

// SubmitRequest is one completed questionnaire.
type SubmitRequest struct {
	Respondent schema.RespondentDetails `json:"respondent" yaml:"respondent"`
	Answers    []schema.Answer          `json:"answers" yaml:"answers"`
}

// SubmitResult is what the respondent sees after submitting.
type SubmitResult struct {
	ID             string          `json:"id"`
	Saved          bool            `json:"saved"`
	Notice         string          `json:"notice,omitempty"`
	SchemaVersion  string          `json:"schema_version"`
	CreatedAt      time.Time       `json:"created_at"`
	Result         *scoring.Result `json:"result"`
	Recommendation Recommendation  `json:"recommendation"`
}

// AssessorOptions tunes listing and analytics.
type AssessorOptions struct {
	Collection  string
	BucketWidth int
	RecentLimit int
}

// Assessor runs the submit pipeline: validate, score, recommend, build, persist.
type Assessor struct {
	model    *maturity.Model
	store    repository.Store
	executor RecommendationExecutor
	logger   Logger
	opts     AssessorOptions
	now      func() time.Time
}

// NewAssessor creates an assessor. executor may be nil, in which case every
// recommendation is the deterministic fallback.
func NewAssessor(model *maturity.Model, store repository.Store, executor RecommendationExecutor, logger Logger, opts AssessorOptions) *Assessor {
	if opts.Collection == "" {
		opts.Collection = schema.DefaultCollectionName
	}
	if opts.BucketWidth <= 0 {
		opts.BucketWidth = schema.DefaultScoreBucketSize
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = schema.DefaultRecentLimit
	}
	return &Assessor{
		model:    model,
		store:    store,
		executor: executor,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// Model returns the questionnaire the assessor scores against.
func (a *Assessor) Model() *maturity.Model {
	return a.model
}

// Collection returns the collection records are stored in.
func (a *Assessor) Collection() string {
	return a.opts.Collection
}

// Submit scores req and stores the record. Only invalid input is an error: a failed
// recommendation falls back, and a failed save is reported through Saved and Notice.
func (a *Assessor) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	if err := schema.ValidateRespondent(&req.Respondent); err != nil {
		return nil, &ValidationError{Field: "respondent", Message: err.Error(), Err: err}
	}
	if err := schema.ValidateAnswers(a.model.Questions, req.Answers); err != nil {
		return nil, &ValidationError{Field: "answers", Message: err.Error(), Err: err}
	}

	result, err := scoring.Evaluate(a.model, req.Answers)
	if err != nil {
		var rangeErr *scoring.TierRangeError
		if !errors.As(err, &rangeErr) {
			return nil, fmt.Errorf("evaluate: %w", err)
		}
		a.logger.Error("Maturity levels do not cover score", "score", rangeErr.Score, "fallback", rangeErr.Fallback)
	}
	metrics.AssessmentsSubmitted.WithLabelValues(result.Level.Name).Inc()

	rec := Recommend(ctx, a.executor, a.model, result, a.logger)

	id, err := schema.NewAssessmentID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	record := BuildRecord(id, req.Respondent, req.Answers, result, a.now(), a.model.Version)

	out := &SubmitResult{
		ID:             id,
		Saved:          true,
		SchemaVersion:  record.SchemaVersion,
		CreatedAt:      record.CreatedAt,
		Result:         result,
		Recommendation: rec,
	}

	if _, err := a.store.Create(ctx, a.opts.Collection, record); err != nil {
		perr := &PersistenceError{Operation: "create", Collection: a.opts.Collection, Err: err}
		a.logger.Error("Failed to save assessment", "id", id, "error", perr)
		metrics.PersistenceFailures.WithLabelValues(a.opts.Collection).Inc()
		out.Saved = false
		out.Notice = SaveFailedNotice
		return out, nil
	}

	a.logger.Info("Assessment saved", "id", id, "score", result.TotalScore, "level", result.Level.Name, "recommendation", rec.Source)
	return out, nil
}

// List returns up to limit records, newest first. A non-positive limit uses the dashboard default.
func (a *Assessor) List(ctx context.Context, limit int) ([]schema.AssessmentRecord, error) {
	if limit <= 0 {
		limit = schema.DefaultDashboardLimit
	}
	records, err := repository.Collect(a.store.StreamAll(ctx, a.opts.Collection, repository.StreamOptions{
		OrderBy:    repository.OrderByCreatedAt,
		Descending: true,
		Limit:      limit,
	}))
	if err != nil {
		return nil, &PersistenceError{Operation: "list", Collection: a.opts.Collection, Err: err}
	}
	if records == nil {
		records = []schema.AssessmentRecord{}
	}
	return records, nil
}

// Stats aggregates every stored record. When score is set, its percentile is included.
func (a *Assessor) Stats(ctx context.Context, score *int) (*analytics.Stats, error) {
	seq := a.store.StreamAll(ctx, a.opts.Collection, repository.StreamOptions{
		OrderBy:    repository.OrderByCreatedAt,
		Descending: true,
	})

	stats, err := analytics.Compute(seq, a.AnalyticsOptions(score))
	if err != nil {
		return nil, &PersistenceError{Operation: "stream", Collection: a.opts.Collection, Err: err}
	}
	return stats, nil
}

// AnalyticsOptions describes the current model for analytics.Compute.
func (a *Assessor) AnalyticsOptions(score *int) analytics.Options {
	return analytics.Options{
		SchemaVersion: a.model.Version,
		Questions:     a.model.Questions,
		Levels:        a.model.Levels,
		BucketWidth:   a.opts.BucketWidth,
		BucketCount:   a.model.BucketCount(a.opts.BucketWidth),
		RecentLimit:   a.opts.RecentLimit,
		Score:         score,
	}
}
