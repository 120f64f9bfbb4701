package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weddingrsvp/internal/security"
	"github.com/charlesng35/weddingrsvp/internal/services"
	"github.com/charlesng35/weddingrsvp/pkg/errors"
	"github.com/charlesng35/weddingrsvp/pkg/response"
)

type AuditHandler struct {
	svc     *services.AuditService
	auditor *security.Auditor
}

func NewAuditHandler(svc *services.AuditService, auditor *security.Auditor) *AuditHandler {
	return &AuditHandler{svc: svc, auditor: auditor}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	per := parseIntQuery(c, "per_page", 50)

	var filters services.AuditFilters
	filters.Actor = c.Query("actor")
	filters.Action = c.Query("action")
	filters.Result = c.Query("result")
	filters.Resource = c.Query("resource")

	if s := c.Query("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			filters.Since = &t
		}
	}
	if u := c.Query("until"); u != "" {
		if t, err := time.Parse(time.RFC3339, u); err == nil {
			filters.Until = &t
		}
	}

	logs, total, err := h.svc.List(requestContext(c), services.AuditListOptions{Page: page, PageSize: per, Filters: filters})
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}

	if page <= 0 {
		page = 1
	}
	if per <= 0 || per > 200 {
		per = 50
	}
	response.SuccessWithMeta(c, http.StatusOK, logs, response.NewMeta(page, per, total))
}

// GET /api/security/audit
func (h *AuditHandler) Security(c *gin.Context) {
	if h.auditor == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, h.auditor.Run(requestContext(c)))
}
