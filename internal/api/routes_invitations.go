package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weddingrsvp/internal/handlers"
)

// Guest-facing routes. The code itself is the credential, so these sit
// outside the admin group behind the stricter limiter.
func registerInvitationRoutes(engine *gin.Engine, handler *handlers.InvitationHandler, limit gin.HandlerFunc) {
	invitations := engine.Group("/api/invitations")
	invitations.Use(limit)
	{
		invitations.POST("/claim", handler.Claim)
		invitations.POST("/device", handler.ValidateDevice)
	}

	rsvp := engine.Group("/api/rsvp")
	rsvp.Use(limit)
	{
		rsvp.GET("/:code", handler.Get)
		rsvp.POST("/:code", handler.Submit)
	}
}
