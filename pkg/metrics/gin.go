package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// InstrumentGin counts API requests by method, route and status.
func InstrumentGin() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		APIRequestsTotal.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Inc()
	}
}
