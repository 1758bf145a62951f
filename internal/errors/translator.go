package errors

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ErrorTranslator 错误转换器，将基础设施错误归一化为AppError
type ErrorTranslator struct{}

// NewErrorTranslator 创建错误转换器
func NewErrorTranslator() *ErrorTranslator {
	return &ErrorTranslator{}
}

// Translate 将各种类型的错误转换为AppError
func (t *ErrorTranslator) Translate(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return t.translateValidationErrors(validationErrs)
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return NewSystemError(ErrCodeConnectionFailed, "Network operation failed").WithCause(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewSystemError(ErrCodeTimeout, "Operation timed out").WithCause(err)
	}

	if t.isDatabaseError(err) {
		return t.translateDatabaseError(err)
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "timeout") {
		return NewSystemError(ErrCodeExternalService, "External service unavailable").WithCause(err)
	}

	return NewSystemError(ErrCodeInternalServer, "Internal server error").WithCause(err)
}

// translateValidationErrors 转换验证错误
func (t *ErrorTranslator) translateValidationErrors(validationErrors validator.ValidationErrors) *AppError {
	details := make([]map[string]interface{}, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		details = append(details, map[string]interface{}{
			"field": fieldError.Field(),
			"tag":   fieldError.Tag(),
			"param": fieldError.Param(),
		})
	}
	return NewValidationError("Request validation failed").WithDetails(details).WithCause(validationErrors)
}

// isDatabaseError 判断是否为数据库错误
func (t *ErrorTranslator) isDatabaseError(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return true
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrInvalidTransaction) {
		return true
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "pq:") || strings.Contains(errMsg, "SQLSTATE")
}

// translateDatabaseError 转换数据库错误
func (t *ErrorTranslator) translateDatabaseError(err error) *AppError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewNotFoundError("record")
	}
	return NewSystemError(ErrCodeDatabaseError, "Database operation failed").WithCause(err)
}
