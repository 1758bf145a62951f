package rag

import (
	"context"
	"sort"
)

// VectorPassage 待写入向量存储的段落
type VectorPassage struct {
	PassageID  uint
	DocumentID uint
	OwnerID    uint
	ChunkIndex int
	Text       string
	Embedding  []float32
}

// VectorSearchRequest 向量检索请求
type VectorSearchRequest struct {
	OwnerID        uint // 0表示不限归属
	QueryEmbedding []float32
	Limit          int
	CandidateLimit int
	Threshold      float64 // 相似度阈值，仅返回 >= Threshold 的结果
}

// SearchMatch 检索结果
type SearchMatch struct {
	PassageID  uint
	DocumentID uint
	ChunkIndex int
	Content    string
	Score      float64
	Metadata   map[string]interface{}
}

// VectorStore 向量存储抽象
type VectorStore interface {
	UpsertPassage(ctx context.Context, passage VectorPassage) (string, error)
	DeleteDocument(ctx context.Context, documentID uint) error
	Search(ctx context.Context, req VectorSearchRequest) ([]SearchMatch, error)
	Ready() bool
}

// sortMatchesByScore 按相似度降序排序，同分时按chunk_index升序，保证确定性
func sortMatchesByScore(matches []SearchMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ChunkIndex < matches[j].ChunkIndex
		}
		return matches[i].Score > matches[j].Score
	})
}
