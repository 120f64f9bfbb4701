package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/weddingrsvp/internal/app"
)

func registerMonitoringRoutes(r *gin.Engine, cfg app.MonitoringConfig) {
	if !cfg.Prometheus.Enabled {
		return
	}

	endpoint := strings.TrimSpace(cfg.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
