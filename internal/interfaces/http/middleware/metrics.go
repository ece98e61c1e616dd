package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/prometheus"
)

// unmatchedRoute labels requests that hit no route, so unknown paths cannot
// grow the label set.
const unmatchedRoute = "unmatched"

// Metrics records request count, latency and body size per route template.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		prometheus.RecordHTTPRequest(m, c.Request.Method, route, c.Writer.Status(), time.Since(start), c.Request.ContentLength)
	}
}

//Personal.AI order the ending
