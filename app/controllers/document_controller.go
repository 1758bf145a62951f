package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docuchat/backend-go/internal/config"
	"github.com/docuchat/backend-go/internal/di"
	apperrors "github.com/docuchat/backend-go/internal/errors"
	"github.com/docuchat/backend-go/internal/logger"
	"github.com/docuchat/backend-go/internal/rag"
	"github.com/docuchat/backend-go/internal/services"
	"github.com/docuchat/backend-go/internal/storage"
)

// DocumentController 文档控制器
type DocumentController struct {
	BaseController
	ingestService *services.IngestService
	docService    *services.DocumentService
	extractor     rag.Extractor
	objectStore   *storage.ObjectStore
}

// Prepare 从DI容器解析依赖
func (c *DocumentController) Prepare() {
	if err := di.Invoke(func(ingest *services.IngestService, docs *services.DocumentService, extractor rag.Extractor, store *storage.ObjectStore) {
		c.ingestService = ingest
		c.docService = docs
		c.extractor = extractor
		c.objectStore = store
	}); err != nil {
		logger.Error("failed to resolve document controller dependencies", zap.Error(err))
		c.JSONError(http.StatusInternalServerError, "service unavailable")
	}
}

// ingestRequestBody 摄取请求体。Chunks为空时服务端自行分块
type ingestRequestBody struct {
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	Source   string                 `json:"source"`
	Metadata map[string]interface{} `json:"metadata"`
	Chunks   []string               `json:"chunks"`
}

// Ingest 摄取文档
func (c *DocumentController) Ingest() {
	userID, ok := c.getAuthenticatedUserID()
	if !ok {
		return
	}

	var body ingestRequestBody
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &body); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := c.Ctx.Request.Context()
	var doc interface{}
	var err error
	if len(body.Chunks) > 0 {
		passages := make([]services.PassageInput, 0, len(body.Chunks))
		for _, chunk := range body.Chunks {
			passages = append(passages, services.PassageInput{Text: chunk})
		}
		doc, err = c.ingestService.Ingest(ctx, services.IngestRequest{
			Title:    body.Title,
			Content:  body.Content,
			Passages: passages,
			Source:   body.Source,
			Metadata: body.Metadata,
			OwnerID:  userID,
		})
	} else {
		doc, err = c.ingestService.IngestText(ctx, body.Title, body.Content, body.Source, body.Metadata, userID)
	}
	if err != nil {
		c.handleError(err)
		return
	}

	c.JSONSuccess(doc)
}

// Upload 上传文件并摄取。支持pdf、txt、md
func (c *DocumentController) Upload() {
	userID, ok := c.getAuthenticatedUserID()
	if !ok {
		return
	}

	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	cfg := config.AppConfig
	if header.Size > cfg.FileUpload.MaxSize {
		c.handleError(apperrors.NewBusinessError(apperrors.ErrCodeFileTooLarge,
			fmt.Sprintf("file exceeds limit of %d bytes", cfg.FileUpload.MaxSize)))
		return
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	if !extensionAllowed(ext, cfg.FileUpload.AllowedTypes) {
		c.handleError(apperrors.NewBusinessError(apperrors.ErrCodeInvalidFileFormat,
			"unsupported file type: "+ext))
		return
	}

	blob, err := io.ReadAll(io.LimitReader(file, cfg.FileUpload.MaxSize+1))
	if err != nil {
		c.JSONError(http.StatusBadRequest, "failed to read upload")
		return
	}
	if int64(len(blob)) > cfg.FileUpload.MaxSize {
		c.handleError(apperrors.NewBusinessError(apperrors.ErrCodeFileTooLarge,
			fmt.Sprintf("file exceeds limit of %d bytes", cfg.FileUpload.MaxSize)))
		return
	}

	ctx := c.Ctx.Request.Context()

	// 原始文件归档到对象存储，失败不阻塞摄取
	objectKey := fmt.Sprintf("uploads/%d/%d_%s", userID, time.Now().UnixNano(), header.Filename)
	if c.objectStore != nil {
		if err := c.objectStore.Upload(ctx, objectKey, bytes.NewReader(blob), int64(len(blob)), header.Header.Get("Content-Type")); err != nil {
			logger.Warn("failed to archive upload", zap.String("object_key", objectKey), zap.Error(err))
			objectKey = ""
		}
	} else {
		objectKey = ""
	}

	title := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	metadata := map[string]interface{}{"filename": header.Filename, "extension": ext}
	if objectKey != "" {
		metadata["objectKey"] = objectKey
	}

	if ext == "pdf" {
		result, err := c.extractor.Extract(ctx, blob)
		if err != nil {
			c.handleError(err)
			return
		}
		passages := make([]services.PassageInput, 0, len(result.Chunks))
		var content strings.Builder
		for _, chunk := range result.Chunks {
			passages = append(passages, services.PassageInput{
				Text:       chunk.Text,
				TokenCount: chunk.TokenCount,
				PageNumber: chunk.PageNumber,
			})
			content.WriteString(chunk.Text)
			content.WriteString("\n")
		}
		metadata["pages"] = result.Pages
		doc, err := c.ingestService.Ingest(ctx, services.IngestRequest{
			Title:    title,
			Content:  content.String(),
			Passages: passages,
			Source:   header.Filename,
			Metadata: metadata,
			OwnerID:  userID,
		})
		if err != nil {
			c.handleError(err)
			return
		}
		c.JSONSuccess(doc)
		return
	}

	doc, err := c.ingestService.IngestText(ctx, title, string(blob), header.Filename, metadata, userID)
	if err != nil {
		c.handleError(err)
		return
	}
	c.JSONSuccess(doc)
}

// List 获取文档列表
func (c *DocumentController) List() {
	userID, ok := c.getAuthenticatedUserID()
	if !ok {
		return
	}

	limit, _ := c.GetInt("limit", 50)
	docs, err := c.docService.ListDocuments(c.Ctx.Request.Context(), userID, limit)
	if err != nil {
		c.handleError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// Get 获取文档详情
func (c *DocumentController) Get() {
	userID, ok := c.getAuthenticatedUserID()
	if !ok {
		return
	}
	docID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	doc, err := c.docService.GetDocument(c.Ctx.Request.Context(), docID, userID)
	if err != nil {
		c.handleError(err)
		return
	}
	c.JSONSuccess(doc)
}

// Status 查询文档处理状态
func (c *DocumentController) Status() {
	userID, ok := c.getAuthenticatedUserID()
	if !ok {
		return
	}
	docID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	status, err := c.docService.GetDocumentStatus(c.Ctx.Request.Context(), docID, userID)
	if err != nil {
		c.handleError(err)
		return
	}
	c.JSONSuccess(status)
}

// Delete 删除文档
func (c *DocumentController) Delete() {
	userID, ok := c.getAuthenticatedUserID()
	if !ok {
		return
	}
	docID, ok := c.mustParseUintParam(":id")
	if !ok {
		return
	}

	if err := c.docService.DeleteDocument(c.Ctx.Request.Context(), docID, userID); err != nil {
		c.handleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"deleted": docID})
}

func extensionAllowed(ext string, allowed []string) bool {
	for _, candidate := range allowed {
		if ext == strings.TrimPrefix(candidate, ".") {
			return true
		}
	}
	return false
}
