package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/weddingrsvp/pkg/metrics"
)

// Metrics records latency and in-flight counts per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.HTTPInFlight.Inc()
		start := time.Now()
		defer metrics.HTTPInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			// Unmatched routes share one label so guessed codes cannot blow up cardinality.
			path = "unmatched"
		}

		status := strconv.Itoa(c.Writer.Status())
		metrics.APILatency.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
