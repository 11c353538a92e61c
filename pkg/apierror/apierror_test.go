package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIErrorFormatting(t *testing.T) {
	t.Parallel()

	require.Equal(t, "NOT_FOUND: post not found (abc)", NotFound(nil, "post not found", "abc").Error())
	require.Equal(t, "UNAUTHORIZED: invalid credentials", Unauthenticated("invalid credentials").Error())

	var nilErr *APIError
	require.Equal(t, "", nilErr.Error())
	require.NoError(t, nilErr.Unwrap())
}

func TestConstructorsCarryStatusAndCause(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("forbidden")

	forbidden := Forbidden(sentinel, "User not authorized")
	require.Equal(t, http.StatusUnauthorized, forbidden.HTTPStatus)
	require.Equal(t, CodeForbidden, forbidden.Code)
	require.ErrorIs(t, forbidden, sentinel)

	conflict := Conflict(sentinel, "email already registered", "ann@x.com")
	require.Equal(t, http.StatusBadRequest, conflict.HTTPStatus)
	require.Equal(t, "ann@x.com", conflict.Details)

	validation := Validation("title is required", "title")
	require.Equal(t, http.StatusBadRequest, validation.HTTPStatus)
	require.Equal(t, CodeValidation, validation.Code)
}
