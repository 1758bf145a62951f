package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/docuchat/backend-go/internal/errors"
	"github.com/docuchat/backend-go/internal/kafka"
	"github.com/docuchat/backend-go/internal/logger"
	"github.com/docuchat/backend-go/internal/models"
	"github.com/docuchat/backend-go/internal/rag"
)

// DocumentService 文档查询与生命周期管理
type DocumentService struct {
	db          *gorm.DB
	vectorStore rag.VectorStore
	producer    *kafka.Producer
	status      *StatusCache
}

// NewDocumentService 创建文档服务
func NewDocumentService(db *gorm.DB, store rag.VectorStore, producer *kafka.Producer, status *StatusCache) *DocumentService {
	return &DocumentService{
		db:          db,
		vectorStore: store,
		producer:    producer,
		status:      status,
	}
}

// ListDocuments 按归属列出文档，不含正文与段落
func (s *DocumentService) ListDocuments(ctx context.Context, ownerID uint, limit int) ([]models.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var docs []models.Document
	err := s.db.WithContext(ctx).
		Select("document_id", "title", "source", "status", "owner_id", "create_time", "update_time").
		Where("owner_id = ?", ownerID).
		Order("create_time DESC").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to list documents").WithCause(err)
	}
	return docs, nil
}

// GetDocument 按ID取文档，校验归属
func (s *DocumentService) GetDocument(ctx context.Context, documentID, ownerID uint) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).Where("document_id = ?", documentID).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("document not found")
		}
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to load document").WithCause(err)
	}
	if doc.OwnerID != ownerID {
		return nil, apperrors.NewNotFoundError("document not found")
	}
	return &doc, nil
}

// GetDocumentStatus 查询文档处理状态。优先读缓存，未命中回落数据库
func (s *DocumentService) GetDocumentStatus(ctx context.Context, documentID, ownerID uint) (*DocumentStatus, error) {
	if _, err := s.GetDocument(ctx, documentID, ownerID); err != nil {
		return nil, err
	}
	if cached := s.status.GetStatus(ctx, documentID); cached != nil {
		return cached, nil
	}

	var doc models.Document
	if err := s.db.WithContext(ctx).Select("status").Where("document_id = ?", documentID).First(&doc).Error; err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to load document status").WithCause(err)
	}
	var count int64
	s.db.WithContext(ctx).Model(&models.Passage{}).Where("document_id = ?", documentID).Count(&count)
	return &DocumentStatus{Status: doc.Status, PassageCount: int(count)}, nil
}

// DeleteDocument 删除文档及其段落，并清理向量索引与状态缓存。
// 向量索引删除失败只记日志，数据库为权威数据源。
func (s *DocumentService) DeleteDocument(ctx context.Context, documentID, ownerID uint) error {
	doc, err := s.GetDocument(ctx, documentID, ownerID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&models.Passage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Document{}, documentID).Error
	})
	if err != nil {
		return apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to delete document").WithCause(err)
	}

	if s.vectorStore != nil && s.vectorStore.Ready() {
		if err := s.vectorStore.DeleteDocument(ctx, documentID); err != nil {
			logger.Warn("failed to delete document vectors",
				zap.Uint("document_id", documentID), zap.Error(err))
		}
	}
	s.status.Delete(ctx, documentID)

	if err := s.producer.SendDocumentEvent(kafka.DocumentEvent{
		DocumentID: documentID,
		OwnerID:    doc.OwnerID,
		Action:     "deleted",
	}); err != nil {
		logger.Warn("failed to publish delete event", zap.Uint("document_id", documentID), zap.Error(err))
	}

	logger.Info("document deleted", zap.Uint("document_id", documentID), zap.Uint("owner_id", ownerID))
	return nil
}
