package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/docuchat/backend-go/internal/config"
	apperrors "github.com/docuchat/backend-go/internal/errors"
	"github.com/docuchat/backend-go/internal/logger"
	"github.com/docuchat/backend-go/internal/models"
	"github.com/docuchat/backend-go/internal/rag"
)

// SimilarityResult 检索命中的段落。Rank从1开始，按相似度降序
type SimilarityResult struct {
	PassageID     uint                   `json:"passage_id"`
	DocumentID    uint                   `json:"document_id"`
	DocumentTitle string                 `json:"document_title"`
	Content       string                 `json:"content"`
	ChunkIndex    int                    `json:"chunk_index"`
	Score         float64                `json:"score"`
	Rank          int                    `json:"rank"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// RetrievalService 相似度检索服务
type RetrievalService struct {
	db          *gorm.DB
	embedder    rag.Embedder
	vectorStore rag.VectorStore
	cache       *StatusCache
	metrics     *MetricsService
	cfg         config.RetrievalConfig
}

// NewRetrievalService 创建检索服务
func NewRetrievalService(db *gorm.DB, embedder rag.Embedder, store rag.VectorStore, cache *StatusCache, metrics *MetricsService, cfg config.RetrievalConfig) *RetrievalService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 5
	}
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = 0.3
	}
	return &RetrievalService{
		db:          db,
		embedder:    embedder,
		vectorStore: store,
		cache:       cache,
		metrics:     metrics,
		cfg:         cfg,
	}
}

// Retrieve 按语义相似度检索段落。limit<=0与threshold<=0时使用配置默认值。
// 无命中返回空切片，不是错误。
func (s *RetrievalService) Retrieve(ctx context.Context, query string, ownerID uint, limit int, threshold float64) ([]SimilarityResult, error) {
	query = rag.Sanitize(query)
	if query == "" {
		return nil, apperrors.NewInvalidContentError("query is empty after sanitization")
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if threshold <= 0 {
		threshold = s.cfg.DefaultThreshold
	}

	cacheKey := s.cacheKey(query, ownerID, limit, threshold)
	if cacheKey != "" {
		var cached []SimilarityResult
		if s.cache.GetResults(ctx, cacheKey, &cached) {
			return cached, nil
		}
	}

	if s.embedder == nil || !s.embedder.Ready() {
		s.metrics.RecordRetrievalFailure()
		return nil, apperrors.NewEmbeddingServiceError(fmt.Errorf("embedder not configured"))
	}
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.metrics.RecordRetrievalFailure()
		return nil, apperrors.NewEmbeddingServiceError(err)
	}

	if s.vectorStore == nil || !s.vectorStore.Ready() {
		s.metrics.RecordRetrievalFailure()
		return nil, apperrors.NewRetrievalUnavailableError(fmt.Errorf("vector store not available"))
	}
	matches, err := s.vectorStore.Search(ctx, rag.VectorSearchRequest{
		OwnerID:        ownerID,
		QueryEmbedding: queryVec,
		Limit:          limit,
		Threshold:      threshold,
	})
	if err != nil {
		s.metrics.RecordRetrievalFailure()
		return nil, apperrors.NewRetrievalUnavailableError(err)
	}

	results := s.decorate(ctx, matches)
	s.metrics.RecordRetrieval(len(results))
	if cacheKey != "" && s.cfg.CacheTTLSec > 0 {
		s.cache.CacheResults(ctx, cacheKey, results, time.Duration(s.cfg.CacheTTLSec)*time.Second)
	}

	logger.Debug("retrieval completed",
		zap.Uint("owner_id", ownerID),
		zap.Int("limit", limit),
		zap.Float64("threshold", threshold),
		zap.Int("results", len(results)))
	return results, nil
}

// decorate 补齐文档标题并赋排名。标题查不到不影响结果本身
func (s *RetrievalService) decorate(ctx context.Context, matches []rag.SearchMatch) []SimilarityResult {
	results := make([]SimilarityResult, 0, len(matches))
	if len(matches) == 0 {
		return results
	}

	docIDs := make([]uint, 0, len(matches))
	seen := make(map[uint]bool)
	for _, m := range matches {
		if !seen[m.DocumentID] {
			seen[m.DocumentID] = true
			docIDs = append(docIDs, m.DocumentID)
		}
	}

	titles := make(map[uint]string)
	var docs []models.Document
	if err := s.db.WithContext(ctx).Select("document_id", "title").Where("document_id IN ?", docIDs).Find(&docs).Error; err != nil {
		logger.Warn("failed to load document titles", zap.Error(err))
	} else {
		for _, d := range docs {
			titles[d.DocumentID] = d.Title
		}
	}

	for i, m := range matches {
		results = append(results, SimilarityResult{
			PassageID:     m.PassageID,
			DocumentID:    m.DocumentID,
			DocumentTitle: titles[m.DocumentID],
			Content:       m.Content,
			ChunkIndex:    m.ChunkIndex,
			Score:         m.Score,
			Rank:          i + 1,
			Metadata:      m.Metadata,
		})
	}
	return results
}

func (s *RetrievalService) cacheKey(query string, ownerID uint, limit int, threshold float64) string {
	if s.cache == nil || s.cfg.CacheTTLSec <= 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%.4f|%s", ownerID, limit, threshold, query)))
	return "rag:retrieval:" + hex.EncodeToString(sum[:16])
}
