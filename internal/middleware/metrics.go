package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JonnyWalker81/trendy/engagement/internal/metrics"
)

// Metrics records request count and latency per route template.
// Unmatched routes are grouped under "unmatched" to bound label cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
