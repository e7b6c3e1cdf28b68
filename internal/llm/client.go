package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ModelName is the Genkit registry name of the chat-completions backend.
const ModelName = "openrouter/chat"

// Generator produces raw text for a prompt in a single attempt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ValidationAttempts() int
}

// Client is the LLM client. It registers the OpenRouter chat-completions API as a Genkit model.
type Client struct {
	config *Config
	http   *http.Client
	g      *genkit.Genkit
	model  ai.Model
}

// NewClient creates a new LLM client and its Genkit instance.
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	config.SetDefaults()

	c := &Client{
		config: config,
		http: &http.Client{
			Timeout: config.Timeout,
		},
	}

	c.g = genkit.Init(ctx)
	genkit.DefineModel(
		c.g,
		ModelName,
		&ai.ModelOptions{
			Label: modelLabel(config.DefaultModel),
			Supports: &ai.ModelSupports{
				Multiturn:  true,
				SystemRole: true,
			},
		},
		c.generateModel,
	)

	c.model = genkit.LookupModel(c.g, ModelName)
	if c.model == nil {
		return nil, fmt.Errorf("model %s not registered", ModelName)
	}

	return c, nil
}

// Genkit returns the Genkit instance flows are registered on.
func (c *Client) Genkit() *genkit.Genkit {
	return c.g
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return *c.config
}

// ValidationAttempts implements Generator.
func (c *Client) ValidationAttempts() int {
	return c.config.MaxRetries
}

// Generate sends one user prompt through the Genkit model and returns the reply text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.Generate(ctx, &ai.ModelRequest{
		Messages: []*ai.Message{
			{
				Role:    ai.RoleUser,
				Content: []*ai.Part{ai.NewTextPart(prompt)},
			},
		},
	}, nil)
	if err != nil {
		return "", err
	}

	if resp == nil || resp.Message == nil {
		return "", NewAPIError(0, "empty model response")
	}

	return messageText(resp.Message), nil
}

// GenerateStructured generates a structured output from the LLM with validation and retry.
// T is the type of the structured output.
// validate is an optional validation function that returns an error if the output is invalid.
// Backend failures are returned immediately; bad output is re-prompted with the error as feedback.
func GenerateStructured[T any](
	gen Generator,
	ctx context.Context,
	prompt string,
	validate func(*T) error,
) (*T, error) {
	originalPrompt := prompt
	attempts := gen.ValidationAttempts()
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		slog.Info("LLM generation attempt",
			"attempt", attempt,
			"prompt_length", len(prompt),
		)

		content, err := gen.Generate(ctx, prompt)
		if err != nil {
			return nil, err
		}

		result, err := parseStructured[T](content)
		if err != nil {
			lastErr = err
			prompt = fmt.Sprintf("%s\n\nPREVIOUS ATTEMPT FAILED:\nError: %v\n\nPlease return valid JSON matching the exact structure requested.", originalPrompt, err)
			continue
		}

		if validate != nil {
			if err := validate(result); err != nil {
				lastErr = NewValidationError(err.Error(), err)
				slog.Warn("LLM output validation failed",
					"attempt", attempt,
					"error", err.Error(),
				)
				prompt = fmt.Sprintf("%s\n\nPREVIOUS VALIDATION ERROR:\n%v\n\nPlease fix the output to pass validation.", originalPrompt, err)
				continue
			}
		}

		slog.Info("LLM generation succeeded", "attempt", attempt)
		return result, nil
	}

	return nil, fmt.Errorf("validation failed after %d attempts: %w", attempts, lastErr)
}

func parseStructured[T any](content string) (*T, error) {
	content = cleanMarkdownCodeBlocks(content)

	var result T
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, NewParseError(content, err)
	}
	return &result, nil
}

// OpenRouterRequest represents a request to OpenRouter (OpenAI-compatible).
type OpenRouterRequest struct {
	Model    string          `json:"model"`
	Messages []OpenRouterMsg `json:"messages"`
}

// OpenRouterMsg represents a message in the conversation.
type OpenRouterMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenRouterResponse represents a response from OpenRouter.
type OpenRouterResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// generateModel is the Genkit model function backed by the chat-completions endpoint.
func (c *Client) generateModel(ctx context.Context, req *ai.ModelRequest, _ ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	msgs := make([]OpenRouterMsg, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := "user"
		switch m.Role {
		case ai.RoleSystem:
			role = "system"
		case ai.RoleModel:
			role = "assistant"
		}
		msgs = append(msgs, OpenRouterMsg{Role: role, Content: messageText(m)})
	}

	content, err := c.callOpenRouter(ctx, msgs)
	if err != nil {
		return nil, err
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(content)},
		},
	}, nil
}

// callOpenRouter makes a single HTTP call to the chat-completions API and returns the reply text.
func (c *Client) callOpenRouter(ctx context.Context, msgs []OpenRouterMsg) (string, error) {
	body, err := json.Marshal(OpenRouterRequest{
		Model:    c.config.DefaultModel,
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		slog.Error("OpenRouter HTTP request failed",
			"error", err.Error(),
			"duration", duration,
		)
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return "", NewTimeoutError(err)
		}
		return "", NewNetworkError(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}()

	slog.Info("OpenRouter HTTP request completed",
		"status_code", resp.StatusCode,
		"duration", duration,
	)

	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer
		if _, err := errBody.ReadFrom(resp.Body); err != nil {
			slog.Warn("Failed to read error response body", "error", err)
			return "", NewAPIError(resp.StatusCode, fmt.Sprintf("status %d (failed to read error body)", resp.StatusCode))
		}
		return "", NewAPIError(resp.StatusCode, errBody.String())
	}

	var openrouterResp OpenRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&openrouterResp); err != nil {
		return "", NewParseError("response body", err)
	}

	if openrouterResp.Error != nil {
		return "", NewAPIError(0, openrouterResp.Error.Message)
	}

	if len(openrouterResp.Choices) == 0 {
		return "", NewAPIError(0, "no choices in response")
	}

	return openrouterResp.Choices[0].Message.Content, nil
}

func messageText(m *ai.Message) string {
	var sb strings.Builder
	for _, p := range m.Content {
		if p != nil && p.IsText() {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// cleanMarkdownCodeBlocks removes markdown code block wrappers from JSON
// Some models (especially Gemini) wrap JSON in ```json...```.
func cleanMarkdownCodeBlocks(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSpace(content)
	}

	if strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	return content
}
