package tasks

import (
	"context"
	"fmt"
	"strings"

	"icmm/internal/llm"
	"icmm/pkg/schema"
)

// ValidateRecommendation checks a generated recommendation.
func ValidateRecommendation(output *RecommendationOutput) error {
	text := strings.TrimSpace(output.Recommendation)
	if len(text) < schema.RecommendationMin || len(text) > schema.RecommendationMax {
		return fmt.Errorf("recommendation must be %d-%d chars, got %d",
			schema.RecommendationMin, schema.RecommendationMax, len(text))
	}
	return nil
}

// ExecuteRecommendationTask generates one personalized recommendation.
func ExecuteRecommendationTask(
	gen llm.Generator,
	ctx context.Context,
	input *RecommendationInput,
) (*RecommendationOutput, error) {
	prompt := llm.BuildRecommendationPrompt(input.MaturityLevel, input.DomainScores, input.Weakness)

	result, err := llm.GenerateStructured[RecommendationOutput](
		gen,
		ctx,
		prompt,
		ValidateRecommendation,
	)

	if err != nil {
		return nil, fmt.Errorf("recommendation task failed: %w", err)
	}

	result.Recommendation = strings.TrimSpace(result.Recommendation)
	return result, nil
}
