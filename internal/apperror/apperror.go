package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind классифицирует ошибку для вызывающей стороны
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindInvalidTransition Kind = "invalid_transition"
	KindAlreadyProcessed  Kind = "already_processed"
	KindConflict          Kind = "conflict"
	KindInconsistentState Kind = "inconsistent_state"
	KindInternal          Kind = "internal"
)

// Error типизированная ошибка приложения
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать ошибки по Kind через errors.Is
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// New создаёт ошибку заданного вида
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap оборачивает причину, сохраняя вид ошибки
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Sentinels for errors.Is(err, apperror.ErrConflict) style checks.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrAlreadyProcessed  = &Error{Kind: KindAlreadyProcessed}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInconsistentState = &Error{Kind: KindInconsistentState}
)

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return New(KindInvalidTransition, format, args...)
}

func AlreadyProcessed(format string, args ...any) *Error {
	return New(KindAlreadyProcessed, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

func InconsistentState(format string, args ...any) *Error {
	return New(KindInconsistentState, format, args...)
}

// KindOf возвращает вид ошибки; для нетипизированных ошибок KindInternal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus сопоставляет вид ошибки с HTTP статусом
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindInvalidTransition, KindAlreadyProcessed:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message возвращает сообщение, пригодное для показа пользователю.
// Детали внутренних ошибок не раскрываются.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal && appErr.Kind != KindInconsistentState {
		return appErr.Message
	}
	return "internal server error"
}
