package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weddingrsvp/internal/handlers"
)

func registerAuthRoutes(engine *gin.Engine, handler *handlers.AuthHandler, limit gin.HandlerFunc) {
	auth := engine.Group("/api/auth")
	auth.Use(limit)
	{
		auth.POST("/login", handler.Login)
	}
}
