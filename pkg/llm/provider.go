package llm

import (
	"context"
	"fmt"
	"time"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// APIError is returned by providers when the backend answers with a non-2xx
// status. The raw body is kept for internal logging only; Error() stays free
// of backend payloads so callers can wrap it safely.
type APIError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration // from a Retry-After header, zero when absent
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm backend returned status %d", e.StatusCode)
}
