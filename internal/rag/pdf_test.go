package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 2, EstimateTokens("eight ch"))
	assert.Equal(t, 25, EstimateTokens(string(make([]byte, 100))))
}

func TestExtractRejectsInvalidPDF(t *testing.T) {
	extractor := NewPDFExtractor(NewChunker(500, 100), NewGovernor(GovernorOptions{}))
	_, err := extractor.Extract(context.Background(), []byte("not a pdf"))
	assert.Error(t, err)
}
