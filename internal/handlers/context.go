package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weddingrsvp/internal/auditctx"
)

const guestActor = "guest"

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// guestContext marks the request as coming from an invitation holder so
// audit entries carry the device id.
func guestContext(c *gin.Context, deviceID string) context.Context {
	ctx := requestContext(c)
	actor, _ := auditctx.FromContext(ctx)
	if actor.Username == "" {
		actor.Username = guestActor
	}
	actor.DeviceID = deviceID
	if actor.IPAddress == "" && c != nil && c.Request != nil {
		actor.IPAddress = c.ClientIP()
		actor.UserAgent = c.Request.UserAgent()
	}
	return auditctx.WithActor(ctx, actor)
}
