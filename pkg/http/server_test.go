package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type gridRoute struct{}

func (gridRoute) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/grid", func(c echo.Context) error {
		c.Response().Header().Set("X-Surface-Version", "3")
		return SuccessResponse(c, nil)
	})
}

func TestServer_CORSFromOptions(t *testing.T) {
	s := NewServer(gridRoute{},
		WithMetrics(""),
		WithCORS([]string{"https://desk.example"}, "X-Surface-Version"),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/grid", nil)
	req.Header.Set(echo.HeaderOrigin, "https://desk.example")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://desk.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "X-Surface-Version", rec.Header().Get(echo.HeaderAccessControlExposeHeaders))
	assert.Equal(t, "3", rec.Header().Get("X-Surface-Version"))
}

func TestServer_CORSDisabled(t *testing.T) {
	s := NewServer(gridRoute{}, WithMetrics(""), WithCORS(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/grid", nil)
	req.Header.Set(echo.HeaderOrigin, "https://desk.example")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
