package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weddingrsvp/internal/middleware"
	"github.com/charlesng35/weddingrsvp/internal/services"
	"github.com/charlesng35/weddingrsvp/pkg/response"
)

type BroadcastHandler struct {
	svc *services.BroadcastService
}

func NewBroadcastHandler(svc *services.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{svc: svc}
}

type broadcastRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// POST /api/broadcast
func (h *BroadcastHandler) Send(c *gin.Context) {
	var req broadcastRequest
	if !bindAndValidate(c, &req) {
		return
	}

	record, err := h.svc.Broadcast(requestContext(c), req.Message, c.GetString(middleware.CtxUsernameKey))
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}

	response.Success(c, http.StatusOK, record)
}
