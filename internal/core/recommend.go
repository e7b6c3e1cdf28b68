package core

import (
	"context"
	"strings"
	"time"

	"icmm/internal/llm/tasks"
	"icmm/internal/maturity"
	"icmm/internal/metrics"
	"icmm/internal/scoring"
)

// FallbackText is served when neither the model, the weakest question nor the tier
// has anything to offer.
const FallbackText = "A personalized recommendation could not be loaded right now. Please try again later."

// Recommendation is the advice shown with a result.
type Recommendation struct {
	Text   string `json:"text"`
	Source string `json:"source"` // ai, cached or fallback
}

// RecommendationInputFor builds the model request for a scored result.
func RecommendationInputFor(res *scoring.Result) *tasks.RecommendationInput {
	weakness := ""
	if res.Weakest != nil {
		weakness = res.Weakest.Category
	}
	return &tasks.RecommendationInput{
		MaturityLevel: res.Level.Name,
		DomainScores:  res.DomainScores,
		Weakness:      weakness,
	}
}

// Fallback returns the deterministic recommendation: the weakest question's quick win,
// else the tier's next step, else FallbackText. It is never blank.
func Fallback(m *maturity.Model, res *scoring.Result) string {
	if res.Weakest != nil && res.Weakest.Index < len(m.Questions) {
		if qw := strings.TrimSpace(m.Questions[res.Weakest.Index].QuickWin); qw != "" {
			return qw
		}
	}
	if next := strings.TrimSpace(res.Level.NextStep); next != "" {
		return next
	}
	return FallbackText
}

// Recommend asks exec for advice and substitutes the fallback on any failure.
// A nil exec always falls back.
func Recommend(ctx context.Context, exec RecommendationExecutor, m *maturity.Model, res *scoring.Result, logger Logger) Recommendation {
	start := time.Now()

	rec := func() Recommendation {
		if exec == nil {
			return Recommendation{Text: Fallback(m, res), Source: metrics.OutcomeFallback}
		}

		out, err := exec.GenerateRecommendation(ctx, RecommendationInputFor(res))
		if err != nil {
			logger.Warn("Recommendation failed, using fallback", "level", res.Level.Name, "error", err)
			return Recommendation{Text: Fallback(m, res), Source: metrics.OutcomeFallback}
		}
		if strings.TrimSpace(out.Recommendation) == "" {
			logger.Warn("Recommendation was blank, using fallback", "level", res.Level.Name)
			return Recommendation{Text: Fallback(m, res), Source: metrics.OutcomeFallback}
		}

		source := metrics.OutcomeAI
		if out.Cached {
			source = metrics.OutcomeCached
		}
		return Recommendation{Text: strings.TrimSpace(out.Recommendation), Source: source}
	}()

	metrics.ObserveRecommendation(rec.Source, time.Since(start))
	return rec
}
