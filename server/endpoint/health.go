package endpoint

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowgen/observability"
)

// HealthChecker returns the aggregated health of the service.
type HealthChecker func(ctx context.Context) *observability.ServiceHealth

// Health reports service health. A down service answers 503.
func Health(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := checker(c.Request.Context())
		status := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, sh)
	}
}
