package rag

import (
	"bytes"
	"context"
	"fmt"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/docuchat/backend-go/internal/logger"
	"go.uber.org/zap"
)

// ExtractedChunk PDF页面产出的段落，摄取管线直接使用，不再二次分块
type ExtractedChunk struct {
	Text       string
	TokenCount int
	PageNumber int
}

// ExtractResult PDF解析结果
type ExtractResult struct {
	Pages  []string
	Chunks []ExtractedChunk
}

// Extractor 文档解析接口
type Extractor interface {
	Extract(ctx context.Context, blob []byte) (*ExtractResult, error)
}

// PDFExtractor 基于unipdf的PDF解析器。逐页提取文本并按页分块，
// 每处理2个段落和每5页查询一次内存压力。
type PDFExtractor struct {
	chunker  *Chunker
	governor *Governor
}

// NewPDFExtractor 创建PDF解析器
func NewPDFExtractor(chunker *Chunker, governor *Governor) *PDFExtractor {
	if chunker == nil {
		chunker = NewChunker(0, 0)
	}
	return &PDFExtractor{
		chunker:  chunker,
		governor: governor,
	}
}

// Extract 解析PDF，返回页面文本与按页分块后的段落
func (p *PDFExtractor) Extract(ctx context.Context, blob []byte) (*ExtractResult, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pdf: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to read page count: %w", err)
	}

	result := &ExtractResult{
		Pages:  make([]string, 0, numPages),
		Chunks: make([]ExtractedChunk, 0),
	}

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := pdfReader.GetPage(pageNum)
		if err != nil {
			logger.Warn("failed to load pdf page", zap.Int("page", pageNum), zap.Error(err))
			continue
		}

		ex, err := extractor.New(page)
		if err != nil {
			logger.Warn("failed to create page extractor", zap.Int("page", pageNum), zap.Error(err))
			continue
		}

		text, err := ex.ExtractText()
		if err != nil {
			logger.Warn("failed to extract page text", zap.Int("page", pageNum), zap.Error(err))
			continue
		}

		result.Pages = append(result.Pages, text)
		result.Chunks = append(result.Chunks, p.chunkPage(ctx, text, pageNum)...)

		if p.governor != nil && pageNum%5 == 0 {
			p.governor.YieldIfElevated(ctx)
		}
	}

	if len(result.Chunks) == 0 {
		return nil, fmt.Errorf("no extractable text in pdf")
	}
	return result, nil
}

// chunkPage 将单页文本切分为带页码的段落
func (p *PDFExtractor) chunkPage(ctx context.Context, pageText string, pageNumber int) []ExtractedChunk {
	pieces := p.chunker.Split(pageText)
	chunks := make([]ExtractedChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, ExtractedChunk{
			Text:       piece.Text,
			TokenCount: EstimateTokens(piece.Text),
			PageNumber: pageNumber,
		})
		if p.governor != nil && (i+1)%2 == 0 {
			p.governor.YieldIfElevated(ctx)
		}
	}
	return chunks
}

// EstimateTokens 粗略估算token数，按4字符一个token
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := len(text) / 4
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
