package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/retailcore/backoffice/internal/infrastructure/telemetry"
)

// ProfileLabels tags the CPU samples of a request with its route template and
// method. Unmatched paths are labelled "unmatched" so raw URLs never reach the
// profile store. Health probes and the swagger UI are not labelled.
func ProfileLabels() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || strings.HasPrefix(path, "/swagger") {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		telemetry.WithProfileLabels(c.Request.Context(), map[string]string{
			telemetry.ProfileLabelRoute:  route,
			telemetry.ProfileLabelMethod: c.Request.Method,
		}, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
