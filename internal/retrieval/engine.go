package retrieval

import (
	"context"
	"errors"
	"fmt"

	"doc-assistant-be/internal/index"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/embedding"
)

// ErrRetrievalUnavailable marks a failure of the embedding backend or the
// index itself. Callers of Retrieve never see it; it exists for tests and
// for code that calls Vectorize directly.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// ValidationError reports an inbound query that breaks an input bound.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + e.Reason
}

type Config struct {
	MaxQueryChars int
	MaxK          int
}

func DefaultConfig() Config {
	return Config{
		MaxQueryChars: 2000,
		MaxK:          4,
	}
}

// Engine turns a query string into ranked context snippets.
type Engine struct {
	provider embedding.EmbeddingProvider
	idx      index.Index
	cfg      Config
	logger   logger.ILogger
}

func NewEngine(provider embedding.EmbeddingProvider, idx index.Index, cfg Config, log logger.ILogger) *Engine {
	if cfg.MaxK <= 0 {
		cfg.MaxK = DefaultConfig().MaxK
	}
	if cfg.MaxQueryChars <= 0 {
		cfg.MaxQueryChars = DefaultConfig().MaxQueryChars
	}
	return &Engine{
		provider: provider,
		idx:      idx,
		cfg:      cfg,
		logger:   log,
	}
}

// Retrieve returns up to k snippets relevant to queryText, best-effort.
// A failing embedding backend or index degrades to an empty result; only
// input validation errors propagate.
func (e *Engine) Retrieve(ctx context.Context, queryText string, k int) ([]index.RetrievalResult, error) {
	if len(queryText) > e.cfg.MaxQueryChars {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("query exceeds %d characters", e.cfg.MaxQueryChars),
		}
	}
	if k <= 0 || k > e.cfg.MaxK {
		k = e.cfg.MaxK
	}

	vector, err := e.vectorize(ctx, queryText)
	if err != nil {
		e.logger.Warn("Retrieval", "Embedding backend unavailable, continuing without context", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, nil
	}

	results, err := e.idx.Query(vector, k)
	if err != nil {
		e.logger.Warn("Retrieval", "Index query failed, continuing without context", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, nil
	}
	return results, nil
}

func (e *Engine) vectorize(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := e.provider.Generate(text, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}
	if len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrRetrievalUnavailable)
	}
	return res.Embedding.Values, nil
}
