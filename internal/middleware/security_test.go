package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func serveWithHeaders(t *testing.T, hsts bool) http.Header {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(SecurityHeaders(hsts))
	r.GET("/api/rsvp/:code", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rsvp/ABC123", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Header()
}

func TestSecurityHeaders(t *testing.T) {
	h := serveWithHeaders(t, true)

	require.Equal(t, "DENY", h.Get("X-Frame-Options"))
	require.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	require.Equal(t, DefaultContentSecurityPolicy, h.Get("Content-Security-Policy"))
	require.Equal(t, "no-referrer", h.Get("Referrer-Policy"))
	require.Equal(t, "no-store", h.Get("Cache-Control"))
	require.Equal(t, "max-age=31536000; includeSubDomains", h.Get("Strict-Transport-Security"))
}

func TestSecurityHeadersWithoutHSTS(t *testing.T) {
	h := serveWithHeaders(t, false)

	require.Empty(t, h.Get("Strict-Transport-Security"))
	require.Equal(t, "no-store", h.Get("Cache-Control"))
}
