// Package errors defines the domain error taxonomy shared by services and
// handlers. Every failure that reaches a client is a *DomainError whose Kind
// decides the HTTP status.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInfrastructure Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidState
	KindValidation
	KindUnauthorized
)

var kindCodes = map[Kind]string{
	KindInfrastructure: "INTERNAL",
	KindNotFound:       "NOT_FOUND",
	KindForbidden:      "FORBIDDEN",
	KindConflict:       "CONFLICT",
	KindInvalidState:   "INVALID_STATE",
	KindValidation:     "VALIDATION_ERROR",
	KindUnauthorized:   "UNAUTHORIZED",
}

func (k Kind) String() string { return kindCodes[k] }

// HTTPStatus maps a kind onto its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState, KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

func newError(kind Kind, message string) *DomainError {
	return &DomainError{Kind: kind, Code: kind.String(), Message: message}
}

func NotFound(message string) *DomainError     { return newError(KindNotFound, message) }
func Forbidden(message string) *DomainError    { return newError(KindForbidden, message) }
func Conflict(message string) *DomainError     { return newError(KindConflict, message) }
func InvalidState(message string) *DomainError { return newError(KindInvalidState, message) }
func Unauthorized(message string) *DomainError { return newError(KindUnauthorized, message) }

// Validation carries per-field messages alongside the summary.
func Validation(message string, fields map[string]string) *DomainError {
	e := newError(KindValidation, message)
	e.Fields = fields
	return e
}

// Wrap turns an unexpected failure into an Infrastructure error. Domain
// errors pass through untouched so guards raised deep inside a
// transaction keep their kind.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if stderrors.As(err, &de) {
		return err
	}
	e := newError(KindInfrastructure, message)
	e.Err = err
	return e
}

// KindOf reports the kind of err, treating unknown errors as Infrastructure.
func KindOf(err error) Kind {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Kind
	}
	return KindInfrastructure
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func HTTPStatus(err error) int {
	return KindOf(err).HTTPStatus()
}

// As exposes the DomainError inside err, if any.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	ok := stderrors.As(err, &de)
	return de, ok
}
