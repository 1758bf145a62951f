package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOpenAIEmbedderWithoutKeyReturnsNoop(t *testing.T) {
	e := NewOpenAIEmbedder("", "", 0)
	assert.False(t, e.Ready())
	assert.Equal(t, 0, e.Dimensions())

	_, err := e.Embed(context.Background(), "hello")
	assert.Error(t, err)
}

func TestNewOpenAIEmbedderInfersDimensions(t *testing.T) {
	tests := []struct {
		model string
		dims  int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
		{"unknown-model", 1536},
		{"", 1536},
	}
	for _, tt := range tests {
		e := NewOpenAIEmbedder("sk-test", tt.model, 0)
		assert.Equal(t, tt.dims, e.Dimensions(), "model %q", tt.model)
		assert.True(t, e.Ready())
	}
}

func TestNewOpenAIEmbedderExplicitDimensionsWin(t *testing.T) {
	e := NewOpenAIEmbedder("sk-test", "text-embedding-3-small", 256)
	assert.Equal(t, 256, e.Dimensions())
}

func TestOpenAIEmbedderRejectsEmptyText(t *testing.T) {
	e := NewOpenAIEmbedder("sk-test", "", 0)
	_, err := e.Embed(context.Background(), "   ")
	assert.Error(t, err)
}
