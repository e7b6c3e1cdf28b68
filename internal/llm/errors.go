package llm

import (
	"fmt"
	"strings"
)

// LLMError represents an error from the LLM client.
type LLMError struct {
	// Type categorizes the error
	Type string

	// Message is a human-readable error message
	Message string

	// Code is the HTTP status code (if applicable)
	Code int

	// Err is the underlying error
	Err error
}

// Error types.
const (
	ErrorTypeNetwork    = "network"
	ErrorTypeAPI        = "api"
	ErrorTypeValidation = "validation"
	ErrorTypeTimeout    = "timeout"
	ErrorTypeParse      = "parse"
)

// Error implements the error interface.
func (e *LLMError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("LLM %s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("LLM %s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *LLMError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a network error.
func NewNetworkError(err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeNetwork,
		Message: "Failed to reach the model backend. Check your network connection.",
		Err:     err,
	}
}

// NewAPIError creates an API error with status code.
// message is usually the raw response body so hints like "retry in 2s" survive.
func NewAPIError(code int, message string) *LLMError {
	return &LLMError{
		Type:    ErrorTypeAPI,
		Code:    code,
		Message: fmt.Sprintf("OpenRouter API error: %s", message),
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string, err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeValidation,
		Message: fmt.Sprintf("Validation failed: %s", message),
		Err:     err,
	}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeTimeout,
		Message: "Request timeout. The model may be under heavy load.",
		Err:     err,
	}
}

// NewParseError creates a parse error.
func NewParseError(content string, err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeParse,
		Message: fmt.Sprintf("Failed to parse LLM output: %s", content),
		Err:     err,
	}
}

// ErrorClass tells the retry loop whether an error is worth another attempt.
type ErrorClass int

const (
	ErrorFatal ErrorClass = iota
	ErrorRetryable
)

func (c ErrorClass) String() string {
	if c == ErrorRetryable {
		return "retryable"
	}
	return "fatal"
}

// retryableMarkers are matched case-insensitively against the error text.
var retryableMarkers = []string{
	"503",
	"service unavailable",
	"overloaded",
	"429",
	"too many requests",
	"quota",
	"rate limit",
	"rate-limit",
	"ratelimit",
	"please retry",
	"network",
	"econnreset",
	"connection reset",
	"timeout",
}

// ClassifyError decides whether err is transient. nil and anything unrecognized are fatal.
// This is the only place error text is inspected.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorFatal
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return ErrorRetryable
		}
	}
	return ErrorFatal
}

// IsRetryableError reports whether err is classified retryable.
func IsRetryableError(err error) bool {
	return ClassifyError(err) == ErrorRetryable
}
