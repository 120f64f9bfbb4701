package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/weddingrsvp/internal/auditctx"
	iauth "github.com/charlesng35/weddingrsvp/internal/auth"
)

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	token, err := jwtSvc.GenerateAccessToken("admin-123", "admin")
	require.NoError(t, err)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/secure", Auth(jwtSvc), func(c *gin.Context) {
		actor, _ := auditctx.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"admin_id":   c.GetString(CtxAdminIDKey),
			"username":   c.GetString(CtxUsernameKey),
			"actor":      actor.Username,
			"request_id": actor.RequestID,
		})
	})

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	// Garbage token -> 401
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "admin-123", payload["admin_id"])
	require.Equal(t, "admin", payload["username"])
	require.Equal(t, "admin", payload["actor"])
	require.Equal(t, w.Header().Get(RequestIDHeader), payload["request_id"])
}
