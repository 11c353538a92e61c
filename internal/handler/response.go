package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"go-content-dashboard/internal/model"
	"go-content-dashboard/pkg/apierror"
)

const maxBodyBytes = 1 << 20

var exposeInternalErrors atomic.Bool

// ExposeInternalErrors makes unclassified 500 responses carry the raw error
// text instead of a generic message.
func ExposeInternalErrors(enabled bool) {
	exposeInternalErrors.Store(enabled)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := model.ErrorResponse{
		Code:    apierror.CodeInternal,
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	case errors.Is(err, model.ErrUserNotFound):
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "User not found"
	case errors.Is(err, model.ErrPostNotFound):
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "Post not found"
	case errors.Is(err, model.ErrEventNotFound):
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "Event not found"
	case errors.Is(err, model.ErrEmailTaken):
		status = http.StatusBadRequest
		body.Code = apierror.CodeConflict
		body.Message = "User already exists"
	case errors.Is(err, model.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		body.Code = apierror.CodeUnauthorized
		body.Message = "invalid credentials"
	case errors.Is(err, model.ErrMissingToken),
		errors.Is(err, model.ErrInvalidToken),
		errors.Is(err, model.ErrTokenExpired),
		errors.Is(err, model.ErrTokenRevoked),
		errors.Is(err, model.ErrUnauthorized):
		status = http.StatusUnauthorized
		body.Code = apierror.CodeUnauthorized
		body.Message = "Token is not valid"
	case errors.Is(err, model.ErrForbidden):
		status = http.StatusUnauthorized
		body.Code = apierror.CodeForbidden
		body.Message = "User not authorized"
	case errors.Is(err, model.ErrInvalidInput):
		status = http.StatusBadRequest
		body.Code = apierror.CodeValidation
		body.Message = "Invalid input"
	default:
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err)
		if exposeInternalErrors.Load() && err != nil {
			body.Message = err.Error()
		}
	}

	writeJSON(w, status, body)
}

// decodeJSON reads one JSON object from the body. Unknown fields are ignored
// so clients may send back whole resources.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	var maxErr *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return apierror.Validation("request body is required", "")
	case errors.As(err, &maxErr):
		return apierror.Validation("request body too large", "")
	default:
		return apierror.Validation("invalid JSON body", "")
	}
}
