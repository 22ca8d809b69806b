package common

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden access")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict") // e.g., username already exists
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation failed")
	ErrAlreadyLiked   = errors.New("already liked")
	ErrNotLiked       = errors.New("not liked yet")
)

// Error pairs a taxonomy sentinel with the message shown to API clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func NewError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "Validation failed"
	}
	return e.Fields[0]
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields ...string) error {
	return &ValidationError{Fields: fields}
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
// Conflicts are reported as 400 to match the public API contract.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyLiked) || errors.Is(err, ErrNotLiked) {
		return http.StatusBadRequest
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// PublicMessage returns the text safe to show a client for err.
func PublicMessage(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Error()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "Resource not found"
	case errors.Is(err, ErrUnauthorized):
		return "Not authorized"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrConflict):
		return "Duplicate field value entered"
	case errors.Is(err, ErrBadRequest):
		return "Bad request"
	case errors.Is(err, ErrAlreadyLiked):
		return "Already liked"
	case errors.Is(err, ErrNotLiked):
		return "Not liked yet"
	}
	return "Internal server error"
}
