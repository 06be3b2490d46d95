package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liu0521613/StudArch-sub001/internal/service"
)

// Metrics records method/route/status/duration for every request. The route
// template is used instead of the raw path so ids don't explode cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
