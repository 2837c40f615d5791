// internal/service/order/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// 领域错误哨兵。上层用 errors.Is 识别后映射为对外的错误码。
var (
	ErrNotFound                = errors.New("order not found")
	ErrConcurrencyConflict     = errors.New("concurrent modification detected")
	ErrInvalidTransition       = errors.New("invalid state transition")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
)

// ValidationError 表示请求数据未通过领域校验，指明具体字段。
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}
