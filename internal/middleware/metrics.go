package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/firmachain/nft-event-server/internal/metrics"
)

// Metrics records one counter increment and one duration observation
// per served request, labeled by the route pattern rather than the raw
// path so parameterized routes stay a single series.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
