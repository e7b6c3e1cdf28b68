package llm

import (
	"context"
	"errors"
	"os"
	"testing"
)

// TestE2E_OpenRouter performs an end-to-end test with the real OpenRouter API.
// Skipped unless RUN_E2E_TESTS=true.
func TestE2E_OpenRouter(t *testing.T) {
	if os.Getenv("RUN_E2E_TESTS") != "true" {
		t.Skip("E2E test skipped - set RUN_E2E_TESTS=true to run")
	}

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		t.Fatal("OPENROUTER_API_KEY not set")
	}

	client, err := NewClient(context.Background(), &Config{
		APIKey:       apiKey,
		BaseURL:      DefaultBaseURL,
		DefaultModel: DefaultModelID,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	t.Run("Recommendation prompt with retry", func(t *testing.T) {
		prompt := BuildRecommendationPrompt("Exploration", map[string]int{
			"Vision & Leadership": 1,
			"Infrastructure":      3,
			"Ethics & Safety":     1,
		}, "Vision & Leadership")

		result, err := Retry(context.Background(), NewRetrier(DefaultRetryPolicy()), func(ctx context.Context) (*TestOutput, error) {
			return GenerateStructured[TestOutput](client, ctx, prompt, func(o *TestOutput) error {
				if len(o.Recommendation) < 10 {
					return errors.New("recommendation must be at least 10 characters")
				}
				return nil
			})
		})

		if err != nil {
			t.Fatalf("Generation failed: %v", err)
		}

		t.Logf("Generated recommendation: %s", result.Recommendation)
	})
}
