package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the API boundary. Handlers map kinds to
// HTTP statuses and machine-readable codes; services never touch HTTP.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindInvalidState         Kind = "invalid_state"
	KindIncompleteSubmission Kind = "incomplete_submission"
	KindAttemptsExhausted    Kind = "attempts_exhausted"
	KindAlreadyPassed        Kind = "already_passed"
	KindGenerationFailure    Kind = "generation_failure"
	KindUnauthorized         Kind = "unauthorized"
	KindForbidden            Kind = "forbidden"
	KindInvalidArgument      Kind = "invalid_argument"
	KindInternal             Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf walks the error chain and returns the outermost Kind, or
// KindInternal when the chain carries no *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to the status the API boundary responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindAttemptsExhausted:
		return http.StatusConflict
	case KindIncompleteSubmission, KindInvalidArgument:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindGenerationFailure:
		return http.StatusBadGateway
	case KindAlreadyPassed:
		// Informational: handlers resolve it with the prior result.
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
