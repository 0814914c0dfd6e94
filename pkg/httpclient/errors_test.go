package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func parseAppError(t *testing.T, resp *http.Response) *apperrors.AppError {
	t.Helper()
	err := ParseResponseError(resp, "wishlist-api")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected *AppError, got %T", err)
	return appErr
}

func TestParseResponseError_StructuredError(t *testing.T) {
	appErr := parseAppError(t, makeResponse(http.StatusNotFound,
		`{"error":{"code":"NOT_FOUND","message":"item not found"}}`))

	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Equal(t, "wishlist-api: item not found", appErr.Message)
	assert.ErrorIs(t, appErr, apperrors.ErrNotFound)
}

func TestParseResponseError_MessageWithErrorList(t *testing.T) {
	appErr := parseAppError(t, makeResponse(http.StatusBadRequest,
		`{"message":"validation failed","errors":["productId is required",{"msg":"bad id"},{"message":"bad flag"}]}`))

	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "UPSTREAM_ERROR", appErr.Code)
	assert.Equal(t, "wishlist-api: validation failed", appErr.Message)
	assert.Equal(t, []string{"productId is required", "bad id", "bad flag"}, appErr.Details)
	assert.ErrorIs(t, appErr, apperrors.ErrInvalidInput)
}

func TestParseResponseError_ErrorDetails(t *testing.T) {
	appErr := parseAppError(t, makeResponse(http.StatusUnprocessableEntity,
		`{"error":{"code":"INVALID","message":"bad","details":["one","two"]}}`))

	assert.Equal(t, []string{"one", "two"}, appErr.Details)
}

func TestParseResponseError_Conflict(t *testing.T) {
	appErr := parseAppError(t, makeResponse(http.StatusConflict, `{"message":"already in wishlist"}`))

	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.ErrorIs(t, appErr, apperrors.ErrConflict)
	assert.Equal(t, http.StatusConflict, apperrors.HTTPStatus(appErr))
}

func TestParseResponseError_ServerErrorMapsToUpstream(t *testing.T) {
	appErr := parseAppError(t, makeResponse(http.StatusInternalServerError, `{"message":"boom"}`))

	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, apperrors.ErrUpstream)
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	appErr := parseAppError(t, makeResponse(http.StatusBadGateway, "<html>bad gateway</html>"))

	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.Equal(t, "wishlist-api: <html>bad gateway</html>", appErr.Message)
}

func TestParseResponseError_EmptyBodyUsesStatusText(t *testing.T) {
	appErr := parseAppError(t, makeResponse(http.StatusForbidden, ""))

	assert.Equal(t, "wishlist-api: Forbidden", appErr.Message)
	assert.ErrorIs(t, appErr, apperrors.ErrForbidden)
}

func TestParseResponseError_NullMessageFallsBack(t *testing.T) {
	appErr := parseAppError(t, makeResponse(http.StatusUnauthorized, `{"error":null}`))

	assert.Equal(t, "wishlist-api: Unauthorized", appErr.Message)
	assert.Nil(t, appErr.Details)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(400))
	assert.True(t, IsClientError(499))
	assert.False(t, IsClientError(399))
	assert.False(t, IsClientError(500))
	assert.False(t, IsClientError(200))
}
