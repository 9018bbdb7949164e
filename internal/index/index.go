package index

// Document is one indexed text chunk with its precomputed vector. Documents
// are produced by the offline ingestion tool and never mutated here.
type Document struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// RetrievalResult is a scored match for a query vector. Produced fresh per
// query; not persisted.
type RetrievalResult struct {
	DocumentID string
	Score      float32 // cosine similarity, higher = more relevant
	Snippet    string
}

// Index answers nearest-neighbor queries over a read-only document
// collection.
//
// Similarity is cosine, computed as the dot product of L2-normalized
// vectors. Results come back sorted by descending score with ties broken by
// document insertion order, at most k of them. An empty or zero-length query
// vector yields an empty result, never an error.
type Index interface {
	Query(vector []float32, k int) ([]RetrievalResult, error)
	Len() int
}
