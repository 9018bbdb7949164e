package index

import (
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"doc-assistant-be/internal/model"
)

// PgvectorIndex serves queries from a pgvector table populated by the
// ingestion collaborator. The table is treated as read-only.
type PgvectorIndex struct {
	db *gorm.DB
}

func NewPgvectorIndex(db *gorm.DB) *PgvectorIndex {
	return &PgvectorIndex{db: db}
}

func (p *PgvectorIndex) Len() int {
	var count int64
	if err := p.db.Model(&model.DocumentEmbedding{}).Count(&count).Error; err != nil {
		return 0
	}
	return int(count)
}

func (p *PgvectorIndex) Query(vector []float32, k int) ([]RetrievalResult, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding_value <=> query) recovers the similarity. chunk_index
	// mirrors insertion order and keeps ties stable.
	type row struct {
		model.DocumentEmbedding
		Similarity float64
	}
	var rows []row

	queryVector := pgvector.NewVector(vector)

	err := p.db.
		Table("document_embeddings").
		Select("document_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Order("similarity DESC, chunk_index ASC").
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]RetrievalResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, RetrievalResult{
			DocumentID: r.Id.String(),
			Score:      float32(r.Similarity),
			Snippet:    r.Document,
		})
	}
	return results, nil
}
