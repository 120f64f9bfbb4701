package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weddingrsvp/internal/services"
	"github.com/charlesng35/weddingrsvp/pkg/response"
)

// AuthHandler handles admin login.
type AuthHandler struct {
	admins *services.AdminService
}

func NewAuthHandler(admins *services.AdminService) *AuthHandler {
	return &AuthHandler{admins: admins}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	tokens, err := h.admins.Authenticate(requestContext(c), req.Username, req.Password)
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}

	response.Success(c, http.StatusOK, tokens)
}
