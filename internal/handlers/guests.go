package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/internal/registry"
	"github.com/charlesng35/weddingrsvp/internal/services"
	"github.com/charlesng35/weddingrsvp/pkg/errors"
	"github.com/charlesng35/weddingrsvp/pkg/response"
)

// maxUploadBytes caps guest list uploads.
const maxUploadBytes = 5 << 20

// GuestHandler serves the admin guest list endpoints.
type GuestHandler struct {
	guests *services.GuestService
}

func NewGuestHandler(guests *services.GuestService) *GuestHandler {
	return &GuestHandler{guests: guests}
}

// GET /api/guests
func (h *GuestHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", registry.DefaultListLimit)
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = registry.DefaultListLimit
	}
	if perPage > registry.MaxListLimit {
		perPage = registry.MaxListLimit
	}

	var status models.RSVPStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, ok := models.ParseRSVPStatus(raw)
		if !ok {
			response.Error(c, errors.NewBadRequest("status must be pending, attending or declined"))
			return
		}
		status = parsed
	}

	guests, total, err := h.guests.List(requestContext(c), services.GuestListOptions{
		Page:    page,
		PerPage: perPage,
		Status:  status,
		Search:  c.Query("search"),
	})
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, newAdminGuestViews(guests, h.guests.InviteLink), response.NewMeta(page, perPage, total))
}

// POST /api/guests
func (h *GuestHandler) Create(c *gin.Context) {
	var req services.CreateGuestInput
	if !bindAndValidate(c, &req) {
		return
	}

	guest, err := h.guests.Create(requestContext(c), req)
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}

	response.Success(c, http.StatusCreated, adminGuestView{Guest: *guest, InviteLink: h.guests.InviteLink(guest.UniqueCode)})
}

// GET /api/guests/stats
func (h *GuestHandler) Stats(c *gin.Context) {
	stats, err := h.guests.Stats(requestContext(c))
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}
	response.Success(c, http.StatusOK, stats)
}

type updateGuestRequest struct {
	Name                *string `json:"name" validate:"omitempty,min=1,max=255"`
	PhoneNumber         *string `json:"phone_number" validate:"omitempty,phone"`
	Email               *string `json:"email"`
	RSVPStatus          *string `json:"rsvp_status"`
	PlusOneCount        *int    `json:"plus_one_count" validate:"omitempty,gte=0,lte=20"`
	PlusOneName         *string `json:"plus_one_name" validate:"omitempty,max=255"`
	IsFamily            *bool   `json:"is_family"`
	DietaryRestrictions *string `json:"dietary_restrictions" validate:"omitempty,max=2000"`
	GuestQuestion       *string `json:"guest_question" validate:"omitempty,max=2000"`
	Notes               *string `json:"notes" validate:"omitempty,max=2000"`
	InviteSent          *bool   `json:"invite_sent"`
}

// PATCH /api/guests/:code
func (h *GuestHandler) Update(c *gin.Context) {
	var req updateGuestRequest
	if !bindAndValidate(c, &req) {
		return
	}

	patch := registry.Patch{
		Name:                req.Name,
		PhoneNumber:         req.PhoneNumber,
		Email:               req.Email,
		PlusOneCount:        req.PlusOneCount,
		PlusOneName:         req.PlusOneName,
		IsFamily:            req.IsFamily,
		DietaryRestrictions: req.DietaryRestrictions,
		GuestQuestion:       req.GuestQuestion,
		Notes:               req.Notes,
		InviteSent:          req.InviteSent,
	}
	if req.RSVPStatus != nil {
		status, ok := models.ParseRSVPStatus(*req.RSVPStatus)
		if !ok {
			response.Error(c, errors.NewBadRequest("rsvp status must be pending, attending or declined"))
			return
		}
		patch.RSVPStatus = &status
	}

	guest, err := h.guests.Update(requestContext(c), c.Param("code"), patch)
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}

	response.Success(c, http.StatusOK, adminGuestView{Guest: *guest, InviteLink: h.guests.InviteLink(guest.UniqueCode)})
}

// POST /api/guests/upload-csv
func (h *GuestHandler) UploadCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errors.NewBadRequest("a csv file is required in the file field"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, errors.NewBadRequest("unable to read uploaded file"))
		return
	}
	defer file.Close()

	result, err := h.guests.BulkImport(requestContext(c), file)
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}

	response.Success(c, http.StatusOK, result)
}

type markSentRequest struct {
	Sent *bool `json:"sent"`
}

// POST /api/guests/:code/mark-sent
//
// The body is optional; without one the invite is marked as sent.
func (h *GuestHandler) MarkSent(c *gin.Context) {
	sent := true
	if c.Request.ContentLength > 0 {
		var req markSentRequest
		if !bindAndValidate(c, &req) {
			return
		}
		if req.Sent != nil {
			sent = *req.Sent
		}
	}

	guest, err := h.guests.MarkInviteSent(requestContext(c), c.Param("code"), sent)
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"unique_code":    guest.UniqueCode,
		"invite_sent":    guest.InviteSent,
		"invite_sent_at": guest.InviteSentAt,
	})
}
