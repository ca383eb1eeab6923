// Package apperr defines the error taxonomy shared by services and the HTTP boundary.
package apperr

import (
	"errors"
	"net/http"
)

// Code classifies a failure independently of the transport.
type Code string

const (
	CodeValidation      Code = "validation"
	CodeUnauthenticated Code = "unauthenticated"
	CodeForbidden       Code = "forbidden"
	CodeQuotaExceeded   Code = "quota_exceeded"
	CodeNotFound        Code = "not_found"
	CodeConflict        Code = "conflict"
	CodeInternal        Code = "internal"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// Add appends a message for the given field.
func (f FieldErrors) Add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}

// Error is a classified failure. Msg is safe to return to callers.
type Error struct {
	Code   Code
	Msg    string
	Fields FieldErrors
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap attaches a cause to a classified error without changing its public message.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// Validation builds a validation failure carrying per-field messages.
func Validation(fields FieldErrors) *Error {
	return &Error{Code: CodeValidation, Msg: "validation failed", Fields: fields}
}

// ValidationField is a shortcut for a single-field validation failure.
func ValidationField(field, message string) *Error {
	fe := FieldErrors{}
	fe.Add(field, message)
	return &Error{Code: CodeValidation, Msg: message, Fields: fe}
}

func Forbidden(msg string) *Error       { return New(CodeForbidden, msg) }
func NotFound(msg string) *Error        { return New(CodeNotFound, msg) }
func Conflict(msg string) *Error        { return New(CodeConflict, msg) }
func QuotaExceeded(msg string) *Error   { return New(CodeQuotaExceeded, msg) }
func Unauthenticated(msg string) *Error { return New(CodeUnauthenticated, msg) }

// CodeOf returns the code of the first classified error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to its response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden, CodeQuotaExceeded:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
