// Package apperr описывает типизированные ошибки сервисного слоя.
//
// Каждый Kind однозначно отображается в HTTP-статус. Message безопасно
// показывать клиенту, Err хранит причину только для логов.
package apperr

import (
	"errors"
	"net/http"
)

// Kind категория ошибки.
type Kind int

// Категории ошибок.
const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Status HTTP-статус для категории.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error ошибка с категорией и сообщением для клиента.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation ошибка входных данных (400).
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Conflict нарушение уникальности (409).
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Unauthorized ошибка аутентификации (401).
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden недостаточно прав (403).
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotFound ресурс не найден (404).
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Internal непредвиденная ошибка (500). Причина сохраняется для логов.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// KindOf возвращает категорию ошибки. Ошибки без категории считаются внутренними.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is проверяет категорию ошибки.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
