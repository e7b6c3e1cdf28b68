package llm

import (
	"context"
	"sync"
)

// MockReply is one scripted result of MockClient.Generate.
type MockReply struct {
	Text string
	Err  error
}

// MockClient is a scripted Generator for testing.
// Replies are consumed in order; the last one repeats once the script runs out.
type MockClient struct {
	Replies  []MockReply
	Attempts int // validation attempts reported to GenerateStructured (default 3)

	mu      sync.Mutex
	prompts []string
}

// NewMockClient returns a mock that answers every call with text.
func NewMockClient(text string) *MockClient {
	return &MockClient{Replies: []MockReply{{Text: text}}}
}

// Generate returns the next scripted reply.
func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.prompts)
	m.prompts = append(m.prompts, prompt)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if len(m.Replies) == 0 {
		return "", NewAPIError(0, "mock has no scripted replies")
	}
	if idx >= len(m.Replies) {
		idx = len(m.Replies) - 1
	}

	r := m.Replies[idx]
	return r.Text, r.Err
}

// ValidationAttempts implements Generator.
func (m *MockClient) ValidationAttempts() int {
	if m.Attempts > 0 {
		return m.Attempts
	}
	return 3
}

// Calls returns how many times Generate was invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of every prompt received, in order.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
