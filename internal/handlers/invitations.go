package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/internal/services"
	"github.com/charlesng35/weddingrsvp/pkg/errors"
	"github.com/charlesng35/weddingrsvp/pkg/response"
)

// InvitationHandler serves the guest-facing endpoints. None of them need
// an admin token; possession of the code is the credential.
type InvitationHandler struct {
	svc *services.InvitationService
}

func NewInvitationHandler(svc *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{svc: svc}
}

type claimRequest struct {
	Code     string `json:"code" validate:"required,invite_code"`
	DeviceID string `json:"device_id" validate:"required,max=128"`
}

type claimResponse struct {
	Guest *invitationView `json:"guest"`
	Bound bool            `json:"bound"`
}

// POST /api/invitations/claim
func (h *InvitationHandler) Claim(c *gin.Context) {
	var req claimRequest
	if !bindAndValidate(c, &req) {
		return
	}

	deviceID := strings.TrimSpace(req.DeviceID)
	result, err := h.svc.Claim(guestContext(c, deviceID), req.Code, deviceID)
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}

	response.Success(c, http.StatusOK, claimResponse{
		Guest: newInvitationView(result.Guest),
		Bound: result.Bound,
	})
}

type deviceRequest struct {
	DeviceID string `json:"device_id" validate:"required,max=128"`
}

// POST /api/invitations/device
//
// Always answers 200: data is the guest bound to the device or null.
func (h *InvitationHandler) ValidateDevice(c *gin.Context) {
	var req deviceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	deviceID := strings.TrimSpace(req.DeviceID)
	guest, err := h.svc.ValidateDevice(guestContext(c, deviceID), deviceID)
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}

	response.Success(c, http.StatusOK, newInvitationView(guest))
}

// GET /api/rsvp/:code
func (h *InvitationHandler) Get(c *gin.Context) {
	guest, err := h.svc.GetByCode(requestContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}
	response.Success(c, http.StatusOK, newInvitationView(guest))
}

type rsvpRequest struct {
	DeviceID            string  `json:"device_id" validate:"omitempty,max=128"`
	Name                *string `json:"name" validate:"omitempty,min=1,max=255"`
	Status              string  `json:"rsvp_status" validate:"required"`
	PlusOneCount        int     `json:"plus_one_count" validate:"gte=0"`
	PlusOneName         *string `json:"plus_one_name" validate:"omitempty,max=255"`
	Email               *string `json:"email" validate:"omitempty,email"`
	IsFamily            *bool   `json:"is_family"`
	DietaryRestrictions *string `json:"dietary_restrictions" validate:"omitempty,max=2000"`
	GuestQuestion       *string `json:"guest_question" validate:"omitempty,max=2000"`
	Notes               *string `json:"notes" validate:"omitempty,max=2000"`
}

// POST /api/rsvp/:code
func (h *InvitationHandler) Submit(c *gin.Context) {
	var req rsvpRequest
	if !bindAndValidate(c, &req) {
		return
	}

	status, ok := models.ParseRSVPStatus(req.Status)
	if !ok || !status.Answered() {
		response.Error(c, errors.NewBadRequest("rsvp status must be attending or declined"))
		return
	}

	deviceID := strings.TrimSpace(req.DeviceID)
	guest, err := h.svc.SubmitRSVP(guestContext(c, deviceID), c.Param("code"), services.RSVPInput{
		DeviceID:            deviceID,
		Name:                req.Name,
		Status:              status,
		PlusOneCount:        req.PlusOneCount,
		PlusOneName:         req.PlusOneName,
		DietaryRestrictions: req.DietaryRestrictions,
		GuestQuestion:       req.GuestQuestion,
		Notes:               req.Notes,
		Email:               req.Email,
		IsFamily:            req.IsFamily,
	})
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}

	response.Success(c, http.StatusOK, newInvitationView(guest))
}
