package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/llm"
)

type Config struct {
	MaxAttempts int
	BackoffBase time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BackoffBase: 500 * time.Millisecond,
	}
}

// Client executes prompts against the generative backend with bounded
// retries. It returns model output verbatim; output sanitization is the
// dispatcher's job.
type Client struct {
	provider llm.LLMProvider
	cfg      Config
	logger   logger.ILogger
}

func NewClient(provider llm.LLMProvider, cfg Config, log logger.ILogger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultConfig().BackoffBase
	}
	return &Client{
		provider: provider,
		cfg:      cfg,
		logger:   log,
	}
}

// Generate runs the prompt, retrying transient failures with exponential
// backoff. Fatal and rate-limited outcomes surface immediately as their
// taxonomy types.
func (c *Client) Generate(ctx context.Context, prompt []llm.Message) (string, error) {
	attempt := 0
	operation := func() (string, error) {
		attempt++
		text, err := c.provider.Chat(ctx, prompt)
		if err == nil {
			return text, nil
		}

		classified := Classify(err)

		var transient *TransientError
		if errors.As(classified, &transient) {
			c.logger.Warn("Generation", "Transient backend failure, will retry", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return "", classified
		}
		return "", backoff.Permanent(classified)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.cfg.BackoffBase

	text, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
	)
	if err != nil {
		return "", err
	}
	return text, nil
}

// Ping issues a minimal generation call. Bootstrap uses it to fail fast
// when the backend is unreachable or misconfigured.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.provider.Generate(ctx, "ping")
	if err != nil {
		return fmt.Errorf("generation backend unreachable: %w", err)
	}
	return nil
}
