package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/docuchat/backend-go/internal/errors"
)

func documentRow(id, ownerID uint, title string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"document_id", "title", "owner_id", "status"}).
		AddRow(id, title, ownerID, "completed")
}

func TestGetDocumentOwnerMismatchIsNotFound(t *testing.T) {
	db, mock := newMockGorm(t)
	svc := NewDocumentService(db, nil, nil, nil)

	mock.ExpectQuery(`SELECT .* FROM "documents"`).
		WillReturnRows(documentRow(5, 2, "someone else's doc"))

	_, err := svc.GetDocument(context.Background(), 5, 1)
	require.Error(t, err)
	// 不泄露他人文档的存在性
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestGetDocumentNotFound(t *testing.T) {
	db, mock := newMockGorm(t)
	svc := NewDocumentService(db, nil, nil, nil)

	mock.ExpectQuery(`SELECT .* FROM "documents"`).
		WillReturnRows(sqlmock.NewRows([]string{"document_id"}))

	_, err := svc.GetDocument(context.Background(), 99, 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestGetDocumentSuccess(t *testing.T) {
	db, mock := newMockGorm(t)
	svc := NewDocumentService(db, nil, nil, nil)

	mock.ExpectQuery(`SELECT .* FROM "documents"`).
		WillReturnRows(documentRow(5, 1, "my doc"))

	doc, err := svc.GetDocument(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, "my doc", doc.Title)
	assert.Equal(t, uint(1), doc.OwnerID)
}

func TestDeleteDocumentRemovesPassagesAndVectors(t *testing.T) {
	db, mock := newMockGorm(t)
	store := &recordingVectorStore{}
	svc := NewDocumentService(db, store, nil, nil)

	mock.ExpectQuery(`SELECT .* FROM "documents"`).
		WillReturnRows(documentRow(5, 1, "doomed"))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "passages"`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM "documents"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.DeleteDocument(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{5}, store.deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDocumentOwnerMismatch(t *testing.T) {
	db, mock := newMockGorm(t)
	store := &recordingVectorStore{}
	svc := NewDocumentService(db, store, nil, nil)

	mock.ExpectQuery(`SELECT .* FROM "documents"`).
		WillReturnRows(documentRow(5, 2, "protected"))

	err := svc.DeleteDocument(context.Background(), 5, 1)
	require.Error(t, err)
	assert.Empty(t, store.deleted)
}

func TestListDocumentsClampsLimit(t *testing.T) {
	db, mock := newMockGorm(t)
	svc := NewDocumentService(db, nil, nil, nil)

	mock.ExpectQuery(`SELECT .* FROM "documents"`).
		WillReturnRows(sqlmock.NewRows([]string{"document_id", "title", "owner_id"}))

	docs, err := svc.ListDocuments(context.Background(), 1, -5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
