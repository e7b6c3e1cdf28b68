package core

import (
	"context"
	"sync"

	"icmm/internal/llm/tasks"
)

// RecommendationExecutor abstracts the recommendation call for testability.
// *tasks.Recommender is the production implementation.
type RecommendationExecutor interface {
	GenerateRecommendation(ctx context.Context, input *tasks.RecommendationInput) (*tasks.RecommendationOutput, error)
}

// MockRecommendationExecutor implements RecommendationExecutor with a canned response.
type MockRecommendationExecutor struct {
	Output *tasks.RecommendationOutput
	Error  error

	mu     sync.Mutex
	calls  int
	inputs []tasks.RecommendationInput
}

// NewMockRecommendationExecutor creates a mock executor with a default successful response.
func NewMockRecommendationExecutor() *MockRecommendationExecutor {
	return &MockRecommendationExecutor{
		Output: &tasks.RecommendationOutput{
			Recommendation: "Form an AI steering team and run a two-month pilot with three volunteer teachers.",
		},
	}
}

func (m *MockRecommendationExecutor) GenerateRecommendation(ctx context.Context, input *tasks.RecommendationInput) (*tasks.RecommendationOutput, error) {
	m.mu.Lock()
	m.calls++
	m.inputs = append(m.inputs, *input)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Error != nil {
		return nil, m.Error
	}
	out := *m.Output
	return &out, nil
}

// Calls returns how many times the executor was invoked.
func (m *MockRecommendationExecutor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Inputs returns every request received, in order.
func (m *MockRecommendationExecutor) Inputs() []tasks.RecommendationInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tasks.RecommendationInput, len(m.inputs))
	copy(out, m.inputs)
	return out
}
