package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/merchportal/backend/internal/infrastructure/telemetry"
)

// Profiling attaches pyroscope labels (controller, route, method) to the
// request so CPU profiles can be sliced per endpoint. Probe routes are skipped.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || route == "/health" || route == "/ready" {
			c.Next()
			return
		}

		labels := telemetry.HTTPRequestLabels(controllerFromRoute(route), route, c.Request.Method)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// controllerFromRoute returns the last static segment of a route.
// "/api/internal/ec/runs/:id" -> "runs"
func controllerFromRoute(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		p := parts[i]
		if p == "" || strings.HasPrefix(p, ":") || strings.HasPrefix(p, "*") {
			continue
		}
		return p
	}
	return ""
}
