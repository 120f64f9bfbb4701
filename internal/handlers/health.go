package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weddingrsvp/internal/monitoring"
	"github.com/charlesng35/weddingrsvp/pkg/errors"
	"github.com/charlesng35/weddingrsvp/pkg/response"
)

// Health evaluates the readiness probes. A failed required probe answers
// 503; degraded optional components are reported with 200.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := manager.Evaluate(requestContext(c))
		if !report.Healthy() {
			var failed []string
			for _, check := range report.Checks {
				if check.Status == monitoring.StatusDown {
					failed = append(failed, check.Component)
				}
			}
			response.Error(c, errors.ErrServiceUnavailable.WithMessage("Unavailable: "+strings.Join(failed, ", ")))
			return
		}
		response.Success(c, http.StatusOK, report)
	}
}
