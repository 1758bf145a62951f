package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/docuchat/backend-go/internal/errors"
	"github.com/docuchat/backend-go/internal/kafka"
	"github.com/docuchat/backend-go/internal/logger"
	"github.com/docuchat/backend-go/internal/models"
	"github.com/docuchat/backend-go/internal/rag"
)

// PassageInput 待摄取的段落。PageNumber与TokenCount仅对PDF来源的段落有意义。
type PassageInput struct {
	Text       string `json:"text" validate:"required"`
	TokenCount int    `json:"token_count"`
	PageNumber int    `json:"page_number"`
}

// IngestRequest 文档摄取请求
type IngestRequest struct {
	Title    string                 `json:"title" validate:"required"`
	Content  string                 `json:"content" validate:"required"`
	Passages []PassageInput         `json:"chunks" validate:"required,min=1,dive"`
	Source   string                 `json:"source"`
	Metadata map[string]interface{} `json:"metadata"`
	OwnerID  uint                   `json:"owner_id" validate:"required"`
}

// IngestServiceOptions 摄取服务依赖与参数
type IngestServiceOptions struct {
	DB          *gorm.DB
	Embedder    rag.Embedder
	VectorStore rag.VectorStore
	Governor    *rag.Governor
	Chunker     *rag.Chunker
	Producer    *kafka.Producer
	Status      *StatusCache
	Metrics     *MetricsService
	BatchSize   int
	Timeout     time.Duration
}

// IngestService 批量摄取管线：清洗、分批向量化、持久化
type IngestService struct {
	db          *gorm.DB
	embedder    rag.Embedder
	vectorStore rag.VectorStore
	governor    *rag.Governor
	chunker     *rag.Chunker
	producer    *kafka.Producer
	status      *StatusCache
	metrics     *MetricsService
	validate    *validator.Validate
	batchSize   int
	timeout     time.Duration
}

// NewIngestService 创建摄取服务
func NewIngestService(opts IngestServiceOptions) *IngestService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Governor == nil {
		opts.Governor = rag.NewGovernor(rag.GovernorOptions{})
	}
	if opts.Chunker == nil {
		opts.Chunker = rag.NewChunker(0, 0)
	}
	return &IngestService{
		db:          opts.DB,
		embedder:    opts.Embedder,
		vectorStore: opts.VectorStore,
		governor:    opts.Governor,
		chunker:     opts.Chunker,
		producer:    opts.Producer,
		status:      opts.Status,
		metrics:     opts.Metrics,
		validate:    validator.New(),
		batchSize:   opts.BatchSize,
		timeout:     opts.Timeout,
	}
}

// IngestText 摄取原始文本：先用分块器切分，再走常规摄取
func (s *IngestService) IngestText(ctx context.Context, title, content, source string, metadata map[string]interface{}, ownerID uint) (*models.Document, error) {
	chunks := s.chunker.Split(content)
	passages := make([]PassageInput, 0, len(chunks))
	for _, chunk := range chunks {
		passages = append(passages, PassageInput{Text: chunk.Text})
	}
	return s.Ingest(ctx, IngestRequest{
		Title:    title,
		Content:  content,
		Passages: passages,
		Source:   source,
		Metadata: metadata,
		OwnerID:  ownerID,
	})
}

// Ingest 摄取文档。段落已预先切分（原始文本路径由IngestText切分，
// PDF路径使用解析器的产出，不再二次切分）。
// 失败时不回滚已写入的批次，调用方据返回错误自行清理部分状态。
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*models.Document, error) {
	started := time.Now()

	// 清洗后再校验，空内容在任何持久化之前失败
	req.Title = rag.Sanitize(req.Title)
	req.Content = rag.Sanitize(req.Content)
	req.Source = rag.Sanitize(req.Source)
	if req.Content == "" {
		s.metrics.RecordIngestionFailure("invalid_content")
		return nil, apperrors.NewInvalidContentError("document content is empty after sanitization")
	}
	if len(req.Passages) == 0 {
		s.metrics.RecordIngestionFailure("invalid_content")
		return nil, apperrors.NewInvalidContentError("document has no passages")
	}
	if err := s.validate.Struct(req); err != nil {
		s.metrics.RecordIngestionFailure("validation")
		return nil, apperrors.NewErrorTranslator().Translate(err)
	}

	// critical压力下拒绝新的大块工作
	if s.governor.Pressure() == rag.PressureCritical {
		s.metrics.RecordIngestionFailure("resource_exhausted")
		return nil, apperrors.NewResourceExhaustedError("memory pressure critical, refusing new ingestion")
	}

	if s.embedder == nil || !s.embedder.Ready() {
		s.metrics.RecordIngestionFailure("embedder_unavailable")
		return nil, apperrors.NewEmbeddingServiceError(fmt.Errorf("embedder not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	metadataJSON := "{}"
	if len(req.Metadata) > 0 {
		if data, err := json.Marshal(req.Metadata); err == nil {
			metadataJSON = string(data)
		}
	}

	doc := &models.Document{
		Title:      req.Title,
		Content:    req.Content,
		Source:     req.Source,
		Metadata:   metadataJSON,
		OwnerID:    req.OwnerID,
		Status:     "processing",
		CreateTime: time.Now(),
		UpdateTime: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		s.metrics.RecordIngestionFailure("database")
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to create document").WithCause(err)
	}
	s.status.SetStatus(ctx, doc.DocumentID, DocumentStatus{Status: "processing"})

	// 固定批次顺序处理；批内并发向量化，批间串行，限制峰值内存与在途请求数
	total := len(req.Passages)
	for batchStart := 0; batchStart < total; batchStart += s.batchSize {
		batchEnd := batchStart + s.batchSize
		if batchEnd > total {
			batchEnd = total
		}
		if err := s.processBatch(ctx, doc, batchStart, req.Passages[batchStart:batchEnd]); err != nil {
			s.failDocument(ctx, doc, err)
			appErr := apperrors.GetAppError(err)
			s.metrics.RecordIngestionFailure(string(appErr.Code))
			return nil, appErr.WithDetails(map[string]interface{}{
				"document_id": doc.DocumentID,
				"batch_index": batchStart / s.batchSize,
			})
		}

		if level := s.governor.YieldIfElevated(ctx); level >= rag.PressureElevated {
			s.metrics.RecordGovernorYield()
			logger.Debug("memory pressure yield between batches",
				zap.Uint("document_id", doc.DocumentID),
				zap.String("pressure", level.String()))
		}
	}

	doc.Status = "completed"
	doc.UpdateTime = time.Now()
	if err := s.db.WithContext(ctx).Save(doc).Error; err != nil {
		s.metrics.RecordIngestionFailure("database")
		return nil, apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to finalize document").WithCause(err)
	}

	s.status.SetStatus(ctx, doc.DocumentID, DocumentStatus{Status: "completed", PassageCount: total})
	if err := s.producer.SendDocumentEvent(kafka.DocumentEvent{
		DocumentID:   doc.DocumentID,
		OwnerID:      doc.OwnerID,
		Action:       "processed",
		PassageCount: total,
	}); err != nil {
		logger.Warn("failed to publish document event", zap.Uint("document_id", doc.DocumentID), zap.Error(err))
	}

	s.metrics.RecordDocumentIngested(total, time.Since(started))
	logger.Info("document ingested",
		zap.Uint("document_id", doc.DocumentID),
		zap.Int("passages", total),
		zap.Duration("elapsed", time.Since(started)))
	return doc, nil
}

// processBatch 处理一个批次：批内并发向量化，全部成功后按序持久化。
// 向量结果按下标槽位回填，持久化顺序只取决于段落序号，与完成顺序无关。
func (s *IngestService) processBatch(ctx context.Context, doc *models.Document, offset int, batch []PassageInput) error {
	texts := make([]string, len(batch))
	for i, passage := range batch {
		clean := rag.Sanitize(passage.Text)
		if clean == "" {
			return apperrors.NewInvalidContentError(fmt.Sprintf("passage %d is empty after sanitization", offset+i))
		}
		texts[i] = clean
	}

	expectedDims := s.embedder.Dimensions()
	vectors := make([][]float32, len(batch))
	embedErrs := make([]error, len(batch))

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vec, err := s.embedder.Embed(ctx, texts[i])
			if err != nil {
				embedErrs[i] = apperrors.NewEmbeddingServiceError(err)
				return
			}
			if len(vec) != expectedDims {
				embedErrs[i] = apperrors.NewEmbeddingValidationError(expectedDims, len(vec))
				return
			}
			vectors[i] = vec
		}(i)
	}
	wg.Wait()

	for _, err := range embedErrs {
		if err != nil {
			return err
		}
	}

	records := make([]models.Passage, len(batch))
	for i := range batch {
		meta := map[string]interface{}{
			"chunkLength": len(texts[i]),
		}
		if batch[i].PageNumber > 0 {
			meta["pageNumber"] = batch[i].PageNumber
		}
		if batch[i].TokenCount > 0 {
			meta["tokenCount"] = batch[i].TokenCount
		}
		metaJSON, _ := json.Marshal(meta)
		embeddingJSON, _ := json.Marshal(vectors[i])

		records[i] = models.Passage{
			DocumentID: doc.DocumentID,
			Content:    texts[i],
			ChunkIndex: offset + i,
			Embedding:  string(embeddingJSON),
			Metadata:   string(metaJSON),
			CreateTime: time.Now(),
		}
	}

	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return apperrors.NewSystemError(apperrors.ErrCodeDatabaseError, "failed to persist passage batch").WithCause(err)
	}

	if s.vectorStore != nil && s.vectorStore.Ready() {
		for i := range records {
			vectorID, err := s.vectorStore.UpsertPassage(ctx, rag.VectorPassage{
				PassageID:  records[i].PassageID,
				DocumentID: doc.DocumentID,
				OwnerID:    doc.OwnerID,
				ChunkIndex: records[i].ChunkIndex,
				Text:       records[i].Content,
				Embedding:  vectors[i],
			})
			if err != nil {
				return apperrors.NewSystemError(apperrors.ErrCodeExternalService, "failed to index passage vector").WithCause(err)
			}
			if vectorID != records[i].VectorID {
				if err := s.db.WithContext(ctx).Model(&records[i]).Update("vector_id", vectorID).Error; err != nil {
					logger.Warn("failed to record vector id",
						zap.Uint("passage_id", records[i].PassageID), zap.Error(err))
				}
			}
		}
	}

	return nil
}

// failDocument 标记文档失败并更新状态缓存。不删除已写入的批次。
func (s *IngestService) failDocument(ctx context.Context, doc *models.Document, cause error) {
	doc.Status = "failed"
	doc.UpdateTime = time.Now()
	if err := s.db.WithContext(ctx).Save(doc).Error; err != nil {
		logger.Error("failed to mark document as failed",
			zap.Uint("document_id", doc.DocumentID), zap.Error(err))
	}
	s.status.SetStatus(ctx, doc.DocumentID, DocumentStatus{Status: "failed", Error: cause.Error()})
}
