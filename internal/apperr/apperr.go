// Package apperr carries typed business errors across service
// boundaries so handlers can map them to HTTP statuses without leaking
// storage internals.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Validation Kind = iota + 1
	NotFound
	Unauthenticated
	Forbidden
	Conflict
	Dependency
	InsufficientResource
)

type Error struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// As unwraps err into an *Error, or nil if it is not one.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code string) bool {
	e := As(err)
	return e != nil && e.Code == code
}

// HTTPStatus maps an error kind to a response status. Unknown errors
// read as 500.
func HTTPStatus(err error) int {
	e := As(err)
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case Conflict, InsufficientResource:
		return http.StatusConflict
	case Dependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
