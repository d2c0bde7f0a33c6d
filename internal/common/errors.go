// Package common defines shared sentinel errors, typed errors and small
// helpers used across hiringhub layers. Callers should use errors.Is and
// errors.As to match these values.
package common

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// repository specific errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// one-time code errors
	ErrExpired  = errors.New("code expired")
	ErrMismatch = errors.New("code mismatch")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ValidationError is a user-facing input error. Fields maps a field name to
// its message; Message is used when the error is not tied to a field.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func NewFieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}

	if e.Message != "" {
		return e.Message + ": " + strings.Join(parts, "; ")
	}
	return strings.Join(parts, "; ")
}

// UpstreamError reports a failure of an external collaborator
// (email, storage, inference).
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamError for service. A nil err stays nil.
func Upstream(service string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Service: service, Err: err}
}
