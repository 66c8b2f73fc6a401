package models

import (
	"errors"
	"net/http"
)

// Виды ошибок предметной области. Проверяются через errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrPermission   = errors.New("permission denied")
	ErrInvalidState = errors.New("invalid state")
	ErrDuplicate    = errors.New("duplicate")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// ErrorResponse описывает ошибку с кодом и сообщением.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"reason"`
	kind       error
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Message:    message}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

// Unwrap позволяет сравнивать ошибку с видами ErrNotFound, ErrPermission и т.д.
func (e *ErrorResponse) Unwrap() error {
	return e.kind
}

// NotFound - запись не найдена.
func NotFound(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusNotFound, Message: message, kind: ErrNotFound}
}

// Forbidden - проверка владельца не пройдена.
func Forbidden(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusForbidden, Message: message, kind: ErrPermission}
}

// InvalidState - операция недопустима в текущем статусе.
func InvalidState(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusConflict, Message: message, kind: ErrInvalidState}
}

// Duplicate - повторное предложение или занятый email.
func Duplicate(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusConflict, Message: message, kind: ErrDuplicate}
}

// Invalid - некорректные входные данные.
func Invalid(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusBadRequest, Message: message, kind: ErrValidation}
}

// Unauthorized - отсутствует или неверен токен.
func Unauthorized(message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: http.StatusUnauthorized, Message: message, kind: ErrUnauthorized}
}

// ErrorKind возвращает короткое имя вида ошибки для метрик и логов.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPermission):
		return "permission"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal"
	}
}
