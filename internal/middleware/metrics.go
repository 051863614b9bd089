package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schooldesk/schooldesk-api/internal/service"
)

// Metrics records method, route and status for every request. The scrape
// endpoint itself is excluded so dashboards are not dominated by Prometheus
// polling.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			// Unmatched paths collapse into a single series to keep
			// label cardinality bounded.
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
