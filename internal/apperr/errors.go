// Package apperr defines the error taxonomy surfaced to API callers.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error into one of the categories exposed to clients.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindBadCredentials
	KindExpired
	KindMalformedToken
	KindMailFailure
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBadCredentials:
		return "bad_credentials"
	case KindExpired:
		return "expired"
	case KindMalformedToken:
		return "malformed_token"
	case KindMailFailure:
		return "mail_failure"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Status returns the default HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindBadCredentials, KindExpired, KindMalformedToken:
		return http.StatusUnauthorized
	case KindMailFailure:
		return http.StatusBadGateway
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a categorized, client-safe error carrying a machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// HTTPStatus overrides Kind.Status when non-zero.
	HTTPStatus int

	err error
}

// New constructs an Error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// Is matches errors that share the same code, so wrapped copies created with
// WithCause or WithMessage still compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Kind == t.Kind
}

// Status returns the HTTP status to respond with.
func (e *Error) Status() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return e.Kind.Status()
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.err = cause
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

func withStatus(e *Error, status int) *Error {
	e.HTTPStatus = status
	return e
}

var (
	ErrUserNotFound         = New(KindNotFound, "100", "user not found")
	ErrNoMoviesFound        = New(KindNotFound, "200", "no movies found")
	ErrMovieNotFound        = New(KindNotFound, "201", "movie not found")
	ErrOwnershipLinkMissing = New(KindNotFound, "202", "movie ownership link not found")
	ErrResetTokenNotFound   = New(KindNotFound, "300", "reset token not found")
	ErrAssetNotFound        = New(KindNotFound, "400", "asset not found")

	ErrTokenExpired      = New(KindExpired, "301", "token expired")
	ErrResetTokenExpired = New(KindExpired, "302", "reset token has expired")

	ErrMalformedToken  = New(KindMalformedToken, "303", "malformed or invalid token")
	ErrSubjectMismatch = New(KindMalformedToken, "304", "token subject does not match")

	ErrInvalidCredentials = New(KindBadCredentials, "600", "username or password is wrong")

	ErrMailDelivery = New(KindMailFailure, "500", "mail could not be sent")

	ErrValidation  = New(KindValidation, "700", "invalid request")
	ErrUserExists  = withStatus(New(KindValidation, "701", "username or email already registered"), http.StatusConflict)
	ErrRateLimited = withStatus(New(KindValidation, "702", "too many requests"), http.StatusTooManyRequests)

	ErrAssetStoreUnavailable = withStatus(New(KindUnknown, "901", "asset store unavailable"), http.StatusServiceUnavailable)
	ErrUnknown               = New(KindUnknown, "900", "An unexpected error occurred")
)

// Validation returns a validation error with a caller-facing message.
func Validation(message string) *Error {
	return ErrValidation.WithMessage(message)
}

// From extracts the taxonomy error from err. Errors outside the taxonomy map to ErrUnknown.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithCause(err)
}
