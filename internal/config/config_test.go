package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, AppConfig)

	assert.Equal(t, 500, AppConfig.Ingestion.ChunkSize)
	assert.Equal(t, 100, AppConfig.Ingestion.ChunkOverlap)
	assert.Equal(t, 10, AppConfig.Ingestion.BatchSize)
	assert.Equal(t, 30, AppConfig.Ingestion.TimeoutSec)

	assert.Equal(t, 5, AppConfig.Retrieval.DefaultLimit)
	assert.Equal(t, 0.3, AppConfig.Retrieval.DefaultThreshold)

	assert.Equal(t, 0.90, AppConfig.Governor.ElevatedRatio)
	assert.Equal(t, 0.95, AppConfig.Governor.CriticalRatio)
	assert.Equal(t, 50, AppConfig.Governor.YieldMilliseconds)

	assert.Equal(t, int64(5242880), AppConfig.FileUpload.MaxSize)
	assert.Equal(t, "database", AppConfig.VectorStore.Provider)
	assert.Equal(t, "text-embedding-3-small", AppConfig.Embedding.Model)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RAG_INGESTION_CHUNK_SIZE", "800")
	t.Setenv("RAG_RETRIEVAL_DEFAULT_LIMIT", "10")

	err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 800, AppConfig.Ingestion.ChunkSize)
	assert.Equal(t, 10, AppConfig.Retrieval.DefaultLimit)
}

func TestOverlapMustBeSmallerThanChunkSize(t *testing.T) {
	t.Setenv("RAG_INGESTION_CHUNK_SIZE", "100")
	t.Setenv("RAG_INGESTION_CHUNK_OVERLAP", "100")

	err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("", "a", "b"))
	assert.Equal(t, "", firstNonEmpty("", "  "))
}
