package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weddingrsvp/internal/auditctx"
	iauth "github.com/charlesng35/weddingrsvp/internal/auth"
	"github.com/charlesng35/weddingrsvp/pkg/errors"
	"github.com/charlesng35/weddingrsvp/pkg/response"
)

const (
	CtxClaimsKey   = "authClaims"
	CtxAdminIDKey  = "adminID"
	CtxUsernameKey = "adminUsername"
)

// Auth enforces admin JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxAdminIDKey, claims.AdminID)
		c.Set(CtxUsernameKey, claims.Username)

		actor, _ := auditctx.FromContext(c.Request.Context())
		actor.Username = claims.Username
		c.Request = c.Request.WithContext(auditctx.WithActor(c.Request.Context(), actor))

		c.Next()
	}
}
