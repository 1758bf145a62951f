package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"gorm.io/gorm"
)

// DatabaseVectorStore 基于PostgreSQL的退化向量存储，
// 向量以JSON形式存放在passages表中，相似度在进程内计算
type DatabaseVectorStore struct {
	db *gorm.DB
}

func NewDatabaseVectorStore(db *gorm.DB) VectorStore {
	return &DatabaseVectorStore{db: db}
}

func (s *DatabaseVectorStore) UpsertPassage(ctx context.Context, passage VectorPassage) (string, error) {
	if len(passage.Embedding) == 0 {
		return "", fmt.Errorf("embedding is empty")
	}

	embeddingJSON, err := json.Marshal(passage.Embedding)
	if err != nil {
		return "", err
	}

	vectorID := fmt.Sprintf("db_%d", passage.PassageID)
	err = s.db.WithContext(ctx).Table("passages").
		Where("passage_id = ?", passage.PassageID).
		Updates(map[string]interface{}{
			"vector_id": vectorID,
			"embedding": string(embeddingJSON),
		}).Error
	if err != nil {
		return "", err
	}
	return vectorID, nil
}

func (s *DatabaseVectorStore) DeleteDocument(ctx context.Context, documentID uint) error {
	return s.db.WithContext(ctx).Table("passages").
		Where("document_id = ?", documentID).
		Delete(nil).Error
}

func (s *DatabaseVectorStore) Search(ctx context.Context, req VectorSearchRequest) ([]SearchMatch, error) {
	if len(req.QueryEmbedding) == 0 {
		return nil, nil
	}
	if req.Limit == 0 {
		req.Limit = 10
	}
	if req.CandidateLimit == 0 {
		req.CandidateLimit = req.Limit * 20
	}

	query := s.db.WithContext(ctx).
		Table("passages").
		Select("passages.passage_id, passages.document_id, passages.content, passages.chunk_index, passages.embedding, passages.metadata").
		Joins("JOIN documents ON passages.document_id = documents.document_id").
		Where("passages.embedding IS NOT NULL AND passages.embedding::text <> ''")
	if req.OwnerID != 0 {
		query = query.Where("documents.owner_id = ?", req.OwnerID)
	}

	var rows []passageEmbeddingRecord
	if err := query.Limit(req.CandidateLimit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	queryNorm := vectorNorm(req.QueryEmbedding)
	if queryNorm == 0 {
		return nil, fmt.Errorf("query embedding norm is zero")
	}

	results := make([]SearchMatch, 0, req.Limit)
	for _, row := range rows {
		var embedding []float32
		if err := json.Unmarshal([]byte(row.EmbeddingJSON), &embedding); err != nil {
			continue
		}
		score := cosineSimilarity(req.QueryEmbedding, embedding, queryNorm)
		if score < req.Threshold {
			continue
		}
		var metadata map[string]interface{}
		if row.MetadataJSON != "" {
			_ = json.Unmarshal([]byte(row.MetadataJSON), &metadata)
		}
		results = append(results, SearchMatch{
			PassageID:  row.PassageID,
			DocumentID: row.DocumentID,
			ChunkIndex: row.ChunkIndex,
			Content:    row.Content,
			Score:      score,
			Metadata:   metadata,
		})
	}

	sortMatchesByScore(results)
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results, nil
}

func (s *DatabaseVectorStore) Ready() bool {
	return s.db != nil
}

// passageEmbeddingRecord 是数据库查询的最小结构，避免引用模型产生循环
type passageEmbeddingRecord struct {
	PassageID     uint
	DocumentID    uint
	Content       string
	ChunkIndex    int
	EmbeddingJSON string `gorm:"column:embedding"`
	MetadataJSON  string `gorm:"column:metadata"`
}

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	return math.Sqrt(sum)
}

func cosineSimilarity(a, b []float32, normA float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot float64
	var normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (normA * math.Sqrt(normB))
}
