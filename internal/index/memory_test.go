package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func testDocs() []Document {
	return []Document{
		{ID: "alpha#0", Text: "alpha text", Embedding: []float32{1, 0, 0}},
		{ID: "beta#0", Text: "beta text", Embedding: []float32{0, 1, 0}},
		{ID: "gamma#0", Text: "gamma text", Embedding: []float32{0, 0, 1}},
		// Same direction as alpha, inserted later
		{ID: "delta#0", Text: "delta text", Embedding: []float32{2, 0, 0}},
	}
}

func TestMemoryIndexQuery(t *testing.T) {
	idx, err := NewMemoryIndex(testDocs(), 3)
	if err != nil {
		t.Fatalf("NewMemoryIndex: %v", err)
	}

	tests := []struct {
		name    string
		vector  []float32
		k       int
		wantIDs []string
	}{
		{
			name:    "descending score order",
			vector:  []float32{1, 0.1, 0},
			k:       3,
			wantIDs: []string{"alpha#0", "delta#0", "beta#0"},
		},
		{
			name:    "ties broken by insertion order",
			vector:  []float32{1, 0, 0},
			k:       2,
			wantIDs: []string{"alpha#0", "delta#0"},
		},
		{
			name:    "k larger than corpus",
			vector:  []float32{0, 1, 0},
			k:       10,
			wantIDs: []string{"beta#0", "alpha#0", "gamma#0", "delta#0"},
		},
		{
			name:    "k zero yields nothing",
			vector:  []float32{1, 0, 0},
			k:       0,
			wantIDs: nil,
		},
		{
			name:    "empty vector yields nothing",
			vector:  nil,
			k:       3,
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := idx.Query(tt.vector, tt.k)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(results) != len(tt.wantIDs) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if results[i].DocumentID != want {
					t.Errorf("result[%d] = %s, want %s", i, results[i].DocumentID, want)
				}
			}
			for i := 1; i < len(results); i++ {
				if results[i].Score > results[i-1].Score {
					t.Errorf("results not sorted: [%d]=%f > [%d]=%f",
						i, results[i].Score, i-1, results[i-1].Score)
				}
			}
		})
	}

	// Ties with insertion order: alpha before delta, both cosine 1.0.
	results, err := idx.Query([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if results[0].Score != results[1].Score {
		t.Fatalf("expected a tie, got %f and %f", results[0].Score, results[1].Score)
	}
}

func TestMemoryIndexQueryDimensionMismatch(t *testing.T) {
	idx, err := NewMemoryIndex(testDocs(), 3)
	if err != nil {
		t.Fatalf("NewMemoryIndex: %v", err)
	}
	if _, err := idx.Query([]float32{1, 0}, 2); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestMemoryIndexEmpty(t *testing.T) {
	idx, err := NewMemoryIndex(nil, 3)
	if err != nil {
		t.Fatalf("NewMemoryIndex: %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("Len = %d, want 0", idx.Len())
	}
	results, err := idx.Query([]float32{1, 0, 0}, 4)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results from empty index, want 0", len(results))
	}
}

func TestNewMemoryIndexRejectsBadVectors(t *testing.T) {
	docs := []Document{{ID: "a", Text: "a", Embedding: []float32{1, 0}}}
	if _, err := NewMemoryIndex(docs, 3); err == nil {
		t.Fatal("expected error for mismatched document dimension")
	}
	if _, err := NewMemoryIndex(nil, 0); err == nil {
		t.Fatal("expected error for zero dimension")
	}
}

func TestLoadSnapshot(t *testing.T) {
	snap := Snapshot{
		Model:     "test-embedding",
		Dimension: 3,
		Documents: testDocs(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	idx, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if idx.Len() != 4 {
		t.Fatalf("Len = %d, want 4", idx.Len())
	}

	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing snapshot file")
	}
}
