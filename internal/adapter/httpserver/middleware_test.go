package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashahrourr/job-tracker/internal/platform/correlation"
)

func TestRequireAuth(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})
	e := srv.echo

	handler := srv.requireAuth(func(c echo.Context) error {
		return c.String(http.StatusOK, userEmail(c))
	})

	t.Run("valid token sets user email", func(t *testing.T) {
		jwt, err := srv.tokens.Issue("user@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+jwt)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, callHandler(handler, c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user@example.com", rec.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		_ = callHandler(handler, c)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		_ = callHandler(handler, c)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer ")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		_ = callHandler(handler, c)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("tampered token", func(t *testing.T) {
		jwt, err := srv.tokens.Issue("user@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+jwt+"x")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		_ = callHandler(handler, c)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCorrelationMiddleware(t *testing.T) {
	e := echo.New()

	var gotID string
	handler := correlationMiddleware(func(c echo.Context) error {
		id, ok := correlation.ID(c.Request().Context())
		require.True(t, ok)
		gotID = id
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler(c))
	assert.NotEmpty(t, gotID)
}
