package index

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"doc-assistant-be/pkg/embedding"
)

// MemoryIndex is a brute-force in-process index. It is immutable after
// construction, so concurrent queries need no locking.
type MemoryIndex struct {
	dimension int
	docs      []Document
}

// Snapshot is the on-disk format written by cmd/buildindex.
type Snapshot struct {
	Model     string     `json:"model"`
	Dimension int        `json:"dimension"`
	Documents []Document `json:"documents"`
}

func NewMemoryIndex(docs []Document, dimension int) (*MemoryIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid index dimension %d", dimension)
	}
	normalized := make([]Document, len(docs))
	for i, doc := range docs {
		if len(doc.Embedding) != dimension {
			return nil, fmt.Errorf("document %s: vector dimension %d, index expects %d",
				doc.ID, len(doc.Embedding), dimension)
		}
		doc.Embedding = embedding.Normalize(doc.Embedding)
		normalized[i] = doc
	}
	return &MemoryIndex{dimension: dimension, docs: normalized}, nil
}

// LoadSnapshot reads a JSON snapshot produced by the ingestion tool.
func LoadSnapshot(path string) (*MemoryIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse index snapshot: %w", err)
	}
	return NewMemoryIndex(snap.Documents, snap.Dimension)
}

func (m *MemoryIndex) Len() int {
	return len(m.docs)
}

func (m *MemoryIndex) Query(vector []float32, k int) ([]RetrievalResult, error) {
	if k <= 0 || len(vector) == 0 || len(m.docs) == 0 {
		return nil, nil
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query vector dimension %d, index expects %d", len(vector), m.dimension)
	}

	query := embedding.Normalize(vector)

	type scored struct {
		pos   int
		score float32
	}
	scores := make([]scored, len(m.docs))
	for i := range m.docs {
		scores[i] = scored{pos: i, score: dot(m.docs[i].Embedding, query)}
	}

	// Stable sort keeps insertion order on equal scores
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]RetrievalResult, 0, k)
	for _, s := range scores[:k] {
		doc := m.docs[s.pos]
		results = append(results, RetrievalResult{
			DocumentID: doc.ID,
			Score:      s.score,
			Snippet:    doc.Text,
		})
	}
	return results, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
