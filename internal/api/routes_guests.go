package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weddingrsvp/internal/handlers"
)

func registerGuestRoutes(api *gin.RouterGroup, guests *handlers.GuestHandler, broadcasts *handlers.BroadcastHandler) {
	group := api.Group("/guests")
	{
		group.GET("", guests.List)
		group.POST("", guests.Create)
		group.GET("/stats", guests.Stats)
		group.POST("/upload-csv", guests.UploadCSV)
		group.PATCH("/:code", guests.Update)
		group.POST("/:code/mark-sent", guests.MarkSent)
	}

	api.POST("/broadcast", broadcasts.Send)
}
