package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/backend-go/internal/config"
	apperrors "github.com/docuchat/backend-go/internal/errors"
	"github.com/docuchat/backend-go/internal/rag"
)

// stubSearchStore 返回预置结果的向量存储桩
type stubSearchStore struct {
	matches []rag.SearchMatch
	err     error
	lastReq rag.VectorSearchRequest
}

func (s *stubSearchStore) UpsertPassage(ctx context.Context, passage rag.VectorPassage) (string, error) {
	return "", nil
}

func (s *stubSearchStore) DeleteDocument(ctx context.Context, documentID uint) error {
	return nil
}

func (s *stubSearchStore) Search(ctx context.Context, req rag.VectorSearchRequest) ([]rag.SearchMatch, error) {
	s.lastReq = req
	return s.matches, s.err
}

func (s *stubSearchStore) Ready() bool { return true }

func newTestRetrievalService(t *testing.T, store rag.VectorStore) (*RetrievalService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockGorm(t)
	embedder := &stubEmbedder{dims: 3, embed: func(string) ([]float32, error) { return fixedVector(3), nil }}
	svc := NewRetrievalService(db, embedder, store, nil, nil, config.RetrievalConfig{
		DefaultLimit:     5,
		DefaultThreshold: 0.3,
	})
	return svc, mock
}

func TestRetrieveAppliesDefaults(t *testing.T) {
	store := &stubSearchStore{}
	svc, _ := newTestRetrievalService(t, store)

	results, err := svc.Retrieve(context.Background(), "query text", 1, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)

	assert.Equal(t, 5, store.lastReq.Limit)
	assert.Equal(t, 0.3, store.lastReq.Threshold)
	assert.Equal(t, uint(1), store.lastReq.OwnerID)
}

func TestRetrieveEmptyQueryRejected(t *testing.T) {
	svc, _ := newTestRetrievalService(t, &stubSearchStore{})

	_, err := svc.Retrieve(context.Background(), "  \x00 ", 1, 0, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidContent))
}

func TestRetrieveNoMatchesIsEmptyNotError(t *testing.T) {
	// 阈值0.3、最高相似度0.25的场景由存储层过滤，返回空集不是错误
	svc, _ := newTestRetrievalService(t, &stubSearchStore{matches: nil})

	results, err := svc.Retrieve(context.Background(), "anything relevant", 1, 5, 0.3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveDecoratesWithTitlesAndRanks(t *testing.T) {
	store := &stubSearchStore{matches: []rag.SearchMatch{
		{PassageID: 1, DocumentID: 10, ChunkIndex: 0, Content: "first", Score: 0.9},
		{PassageID: 2, DocumentID: 11, ChunkIndex: 3, Content: "second", Score: 0.7},
	}}
	svc, mock := newTestRetrievalService(t, store)

	mock.ExpectQuery(`SELECT .* FROM "documents"`).
		WillReturnRows(sqlmock.NewRows([]string{"document_id", "title"}).
			AddRow(uint(10), "Manual").
			AddRow(uint(11), "FAQ"))

	results, err := svc.Retrieve(context.Background(), "question", 1, 5, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Manual", results[0].DocumentTitle)
	assert.Equal(t, "FAQ", results[1].DocumentTitle)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
	assert.Equal(t, 0.9, results[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetrieveStoreFailureIsUnavailable(t *testing.T) {
	store := &stubSearchStore{err: errors.New("milvus down")}
	svc, _ := newTestRetrievalService(t, store)

	_, err := svc.Retrieve(context.Background(), "question", 1, 5, 0.3)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRetrievalUnavailable))
}

func TestRetrieveEmbedderFailure(t *testing.T) {
	db, _ := newMockGorm(t)
	embedder := &stubEmbedder{dims: 3, embed: func(string) ([]float32, error) {
		return nil, errors.New("timeout")
	}}
	svc := NewRetrievalService(db, embedder, &stubSearchStore{}, nil, nil, config.RetrievalConfig{})

	_, err := svc.Retrieve(context.Background(), "question", 1, 0, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEmbeddingService))
}

func TestRetrieveDeterministicAcrossCalls(t *testing.T) {
	store := &stubSearchStore{matches: []rag.SearchMatch{
		{PassageID: 1, DocumentID: 10, ChunkIndex: 0, Content: "a", Score: 0.8},
	}}
	svc, mock := newTestRetrievalService(t, store)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(`SELECT .* FROM "documents"`).
			WillReturnRows(sqlmock.NewRows([]string{"document_id", "title"}).AddRow(uint(10), "Doc"))
	}

	first, err := svc.Retrieve(context.Background(), "stable query", 1, 5, 0.3)
	require.NoError(t, err)
	second, err := svc.Retrieve(context.Background(), "stable query", 1, 5, 0.3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
