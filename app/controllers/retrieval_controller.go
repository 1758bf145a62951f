package controllers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/docuchat/backend-go/internal/di"
	"github.com/docuchat/backend-go/internal/logger"
	"github.com/docuchat/backend-go/internal/rag"
	"github.com/docuchat/backend-go/internal/services"
)

// RetrievalController 相似度检索控制器
type RetrievalController struct {
	BaseController
	retrievalService *services.RetrievalService
}

// Prepare 从DI容器解析依赖
func (c *RetrievalController) Prepare() {
	if err := di.Invoke(func(retrieval *services.RetrievalService) {
		c.retrievalService = retrieval
	}); err != nil {
		logger.Error("failed to resolve retrieval controller dependencies", zap.Error(err))
		c.JSONError(http.StatusInternalServerError, "service unavailable")
	}
}

type retrieveRequestBody struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
}

// Retrieve 语义检索段落
func (c *RetrievalController) Retrieve() {
	userID, ok := c.getAuthenticatedUserID()
	if !ok {
		return
	}

	var body retrieveRequestBody
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &body); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := c.retrievalService.Retrieve(c.Ctx.Request.Context(), body.Query, userID, body.Limit, body.Threshold)
	if err != nil {
		c.handleError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

type renderCitationsBody struct {
	Answer string `json:"answer"`
}

// RenderCitations 将答案中的来源标记替换为编号引用
func (c *RetrievalController) RenderCitations() {
	var body renderCitationsBody
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &body); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}

	rendered, sources := rag.RenderCitations(body.Answer)
	c.JSONSuccess(map[string]interface{}{
		"answer":  rendered,
		"sources": sources,
	})
}
