package tasks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"

	"icmm/internal/llm"
	"icmm/internal/metrics"
)

// FlowName is the Genkit flow that produces recommendations.
const FlowName = "personalizedRecommendationsFlow"

// Cache stores generated recommendations by request key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Recommender runs the recommendation flow under a retry policy with an optional cache.
type Recommender struct {
	run     func(context.Context, RecommendationInput) (*RecommendationOutput, error)
	retrier *llm.Retrier
	cache   Cache
}

// NewRecommender registers the recommendation flow on g. gen performs the model calls.
// cache may be nil. A flow name can be registered only once per Genkit instance.
func NewRecommender(g *genkit.Genkit, gen llm.Generator, retrier *llm.Retrier, cache Cache) *Recommender {
	flow := genkit.DefineFlow(g, FlowName,
		func(ctx context.Context, input RecommendationInput) (*RecommendationOutput, error) {
			return ExecuteRecommendationTask(gen, ctx, &input)
		},
	)

	if retrier == nil {
		retrier = llm.NewRetrier(llm.DefaultRetryPolicy())
	}

	return &Recommender{
		run:     flow.Run,
		retrier: retrier,
		cache:   cache,
	}
}

// GenerateRecommendation returns a recommendation for input. Transient failures are retried;
// once retries are exhausted the last error is returned.
func (r *Recommender) GenerateRecommendation(ctx context.Context, input *RecommendationInput) (*RecommendationOutput, error) {
	key := ""
	if r.cache != nil {
		var err error
		key, err = CacheKey(input)
		if err != nil {
			slog.Warn("Recommendation cache key failed", "error", err)
		} else if text, ok, err := r.cache.Get(ctx, key); err != nil {
			slog.Warn("Recommendation cache read failed", "error", err)
		} else if ok {
			slog.Debug("Recommendation cache hit", "key", key)
			return &RecommendationOutput{Recommendation: text, Cached: true}, nil
		}
	}

	out, err := llm.Retry(ctx, r.retrier, func(ctx context.Context) (*RecommendationOutput, error) {
		metrics.RecommendationAttempts.Inc()
		return r.run(ctx, *input)
	})
	if err != nil {
		return nil, err
	}

	if r.cache != nil && key != "" {
		if err := r.cache.Set(ctx, key, out.Recommendation); err != nil {
			slog.Warn("Recommendation cache write failed", "error", err)
		}
	}

	return out, nil
}

// CacheKey derives a stable cache key from the request. Map keys are serialized in sorted order.
func CacheKey(input *RecommendationInput) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "recommendation:" + hex.EncodeToString(sum[:]), nil
}
