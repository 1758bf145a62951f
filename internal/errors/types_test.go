package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewEmbeddingServiceError(cause)

	assert.Equal(t, ErrCodeEmbeddingService, err.Code)
	assert.Equal(t, http.StatusBadGateway, err.HTTPCode)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsCodeThroughWrappedChain(t *testing.T) {
	inner := NewInvalidContentError("empty after sanitization")
	wrapped := fmt.Errorf("ingest failed: %w", inner)

	assert.True(t, IsCode(wrapped, ErrCodeInvalidContent))
	assert.False(t, IsCode(wrapped, ErrCodeNotFound))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeInvalidContent))
}

func TestGetAppErrorWrapsUnknown(t *testing.T) {
	plain := errors.New("boom")
	appErr := GetAppError(plain)

	assert.Equal(t, ErrCodeInternalServer, appErr.Code)
	assert.ErrorIs(t, appErr, plain)
}

func TestEmbeddingValidationErrorMessage(t *testing.T) {
	err := NewEmbeddingValidationError(1536, 768)
	assert.Contains(t, err.Message, "1536")
	assert.Contains(t, err.Message, "768")
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPCode)
}

func TestHTTPCodeMapping(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, NewResourceExhaustedError("oom").HTTPCode)
	assert.Equal(t, http.StatusServiceUnavailable, NewRetrievalUnavailableError(errors.New("down")).HTTPCode)
	assert.Equal(t, http.StatusBadRequest, NewInvalidContentError("empty").HTTPCode)
	assert.Equal(t, http.StatusNotFound, NewNotFoundError("document").HTTPCode)
	assert.Equal(t, http.StatusRequestEntityTooLarge, NewBusinessError(ErrCodeFileTooLarge, "big").HTTPCode)
}
