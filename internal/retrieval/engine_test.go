package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"doc-assistant-be/internal/index"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/pkg/embedding"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: f.vector},
	}, nil
}

type fakeIndex struct {
	results []index.RetrievalResult
	err     error
	gotK    int
}

func (f *fakeIndex) Query(vector []float32, k int) ([]index.RetrievalResult, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.results) {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *fakeIndex) Len() int { return len(f.results) }

func TestRetrieveReturnsRankedResults(t *testing.T) {
	idx := &fakeIndex{results: []index.RetrievalResult{
		{DocumentID: "a", Score: 0.9, Snippet: "aaa"},
		{DocumentID: "b", Score: 0.5, Snippet: "bbb"},
	}}
	engine := NewEngine(&fakeEmbedder{vector: []float32{1, 0}}, idx, Config{MaxQueryChars: 100, MaxK: 4}, logger.Noop())

	results, err := engine.Retrieve(context.Background(), "what is alpha", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 2 || results[0].DocumentID != "a" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if idx.gotK != 2 {
		t.Errorf("index queried with k=%d, want 2", idx.gotK)
	}
}

func TestRetrieveCapsK(t *testing.T) {
	tests := []struct {
		name  string
		k     int
		wantK int
	}{
		{name: "k above MaxK is capped", k: 50, wantK: 4},
		{name: "k zero falls back to MaxK", k: 0, wantK: 4},
		{name: "k negative falls back to MaxK", k: -1, wantK: 4},
		{name: "k within bounds passes through", k: 2, wantK: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := &fakeIndex{}
			engine := NewEngine(&fakeEmbedder{vector: []float32{1}}, idx, Config{MaxQueryChars: 100, MaxK: 4}, logger.Noop())
			if _, err := engine.Retrieve(context.Background(), "q", tt.k); err != nil {
				t.Fatalf("Retrieve: %v", err)
			}
			if idx.gotK != tt.wantK {
				t.Errorf("index queried with k=%d, want %d", idx.gotK, tt.wantK)
			}
		})
	}
}

func TestRetrieveRejectsOversizedQuery(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1}}
	engine := NewEngine(embedder, &fakeIndex{}, Config{MaxQueryChars: 10, MaxK: 4}, logger.Noop())

	_, err := engine.Retrieve(context.Background(), strings.Repeat("x", 11), 2)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if embedder.calls != 0 {
		t.Errorf("embedding backend called %d times for a rejected query", embedder.calls)
	}
}

func TestRetrieveDegradesOnBackendFailure(t *testing.T) {
	tests := []struct {
		name     string
		embedder *fakeEmbedder
		idx      *fakeIndex
	}{
		{
			name:     "embedding backend down",
			embedder: &fakeEmbedder{err: errors.New("connection refused")},
			idx:      &fakeIndex{},
		},
		{
			name:     "empty embedding",
			embedder: &fakeEmbedder{vector: nil},
			idx:      &fakeIndex{},
		},
		{
			name:     "index failure",
			embedder: &fakeEmbedder{vector: []float32{1}},
			idx:      &fakeIndex{err: errors.New("dimension mismatch")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(tt.embedder, tt.idx, Config{MaxQueryChars: 100, MaxK: 4}, logger.Noop())
			results, err := engine.Retrieve(context.Background(), "query", 2)
			if err != nil {
				t.Fatalf("degraded retrieval must not error, got %v", err)
			}
			if results != nil {
				t.Fatalf("degraded retrieval must return no results, got %+v", results)
			}
		})
	}
}

func TestRetrieveHonorsContextCancellation(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1}}
	engine := NewEngine(embedder, &fakeIndex{}, Config{MaxQueryChars: 100, MaxK: 4}, logger.Noop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := engine.Retrieve(ctx, "query", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if results != nil {
		t.Fatalf("expected degraded empty result after cancellation, got %+v", results)
	}
	if embedder.calls != 0 {
		t.Errorf("embedding backend called after cancellation")
	}
}
