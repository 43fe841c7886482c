// Package apperrors defines the structured error kinds shared by the policy
// engine, the executor, the crontab store and the HTTP gateway.
package apperrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aatumaykin/cronkeeper/internal/logger"
)

// Kind categorizes an error for programmatic handling.
type Kind string

const (
	KindNotPermitted     Kind = "NOT_PERMITTED"
	KindValidationFailed Kind = "VALIDATION_FAILED"
	KindExecution        Kind = "EXECUTION_ERROR"
	KindTimeout          Kind = "TIMEOUT"
	KindIO               Kind = "IO_ERROR"
	KindNotFound         Kind = "NOT_FOUND"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindBadRequest       Kind = "BAD_REQUEST"
)

// Error - структурированная ошибка с видом, сообщением и причиной
type Error struct {
	Kind       Kind           `json:"kind"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps cause with a kind and message.
func Wrap(cause error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithSuggestion returns e with a suggestion attached.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail returns e with one more detail entry.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// LogFields возвращает поля для структурированного логирования
func (e *Error) LogFields() []logger.Field {
	fields := []logger.Field{
		{Key: "error_kind", Value: string(e.Kind)},
		{Key: "error_message", Value: e.Message},
	}
	if e.Suggestion != "" {
		fields = append(fields, logger.Field{Key: "error_suggestion", Value: e.Suggestion})
	}
	return fields
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// NotPermitted creates a policy rejection.
func NotPermitted(reason string) *Error {
	return New(KindNotPermitted, reason)
}

// NotFound creates a missing resource error.
func NotFound(format string, args ...any) *Error {
	return Newf(KindNotFound, format, args...)
}

// IO wraps a file-system failure.
func IO(cause error, message string) *Error {
	return Wrap(cause, KindIO, message)
}
