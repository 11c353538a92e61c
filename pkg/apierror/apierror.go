package apierror

import (
	"fmt"
	"net/http"
)

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	cause      error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the sentinel the error was built from, if any, so callers
// can still use errors.Is against model errors.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Wrap is New with an attached cause.
func Wrap(cause error, code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status, cause: cause}
}

func Validation(message string, field string) *APIError {
	return New(CodeValidation, message, field, http.StatusBadRequest)
}

func Unauthenticated(message string) *APIError {
	return New(CodeUnauthorized, message, "", http.StatusUnauthorized)
}

// Forbidden is reported as 401 because dashboard clients already treat
// "User not authorized" on 401 as the ownership failure.
func Forbidden(cause error, message string) *APIError {
	return Wrap(cause, CodeForbidden, message, "", http.StatusUnauthorized)
}

func NotFound(cause error, message string, id string) *APIError {
	return Wrap(cause, CodeNotFound, message, id, http.StatusNotFound)
}

func Conflict(cause error, message string, details string) *APIError {
	return Wrap(cause, CodeConflict, message, details, http.StatusBadRequest)
}
