package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/iliyamo/festival-ticketing/internal/repository"
	"github.com/iliyamo/festival-ticketing/internal/ticket"
)

// Kind classifies a failure for callers.  Each kind maps to exactly one
// HTTP status.
type Kind int

const (
	KindServerError Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindInvalidInput
	KindInvalidState
	KindExpired
	KindInvalidSignature
	KindInvalidToken
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidState:
		return "invalid_state"
	case KindExpired:
		return "expired"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindInvalidToken:
		return "invalid_token"
	default:
		return "server_error"
	}
}

// HTTPStatus is the response status for k.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidInput, KindInvalidState, KindExpired, KindInvalidSignature, KindInvalidToken:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is the failure type returned by every service operation.
// Reason is a stable machine-readable discriminator (for example
// "already_checked_in"); Message is for humans.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return e.Reason + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, reason, msg string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: msg}
}

// internal wraps an unexpected failure.  Its message never reaches
// clients.
func internal(op string, err error) *Error {
	return &Error{Kind: KindServerError, Reason: "server_error", Message: op, Err: err}
}

// KindOf returns the Kind of err, or KindServerError for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindServerError
}

// AsError returns err as *Error, wrapping foreign errors as server errors.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return internal("unexpected error", err)
}

// TokenError maps codec failures to their kinds.
func TokenError(err error) *Error {
	switch {
	case errors.Is(err, ticket.ErrExpired):
		return &Error{Kind: KindExpired, Reason: "token_expired", Message: "ticket has expired", Err: err}
	case errors.Is(err, ticket.ErrInvalidSignature):
		return &Error{Kind: KindInvalidSignature, Reason: "invalid_signature", Message: "ticket signature is invalid", Err: err}
	case errors.Is(err, ticket.ErrInvalidToken):
		return &Error{Kind: KindInvalidToken, Reason: "invalid_token", Message: "ticket token is malformed", Err: err}
	default:
		return internal("verify ticket", err)
	}
}

// notFoundOr maps repository.ErrNotFound to a NotFound error with
// reason, anything else to a server error.
func notFoundOr(err error, reason, msg, op string) *Error {
	if errors.Is(err, repository.ErrNotFound) {
		return &Error{Kind: KindNotFound, Reason: reason, Message: msg, Err: err}
	}
	return internal(op, err)
}
