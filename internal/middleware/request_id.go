package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/charlesng35/weddingrsvp/internal/auditctx"
)

const (
	RequestIDHeader = "X-Request-ID"
	CtxRequestIDKey = "requestID"
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9\-_.]{1,64}$`)

// RequestID tags every request with an id, reusing a well formed incoming
// X-Request-ID. The id and client details seed the audit actor.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !requestIDPattern.MatchString(id) {
			id = ulid.Make().String()
		}

		c.Set(CtxRequestIDKey, id)
		c.Header(RequestIDHeader, id)

		actor := auditctx.Actor{
			RequestID: id,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Request = c.Request.WithContext(auditctx.WithActor(c.Request.Context(), actor))

		c.Next()
	}
}
