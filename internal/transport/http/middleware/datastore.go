package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/attestra/credential-platform/internal/core/port"
)

const defaultPingTimeout = 2 * time.Second

// RequireDatastore verifies the authorization directory's backing connection
// before any decision work starts. An unreachable directory short-circuits
// the pipeline with 503 rather than surfacing as a misleading denial.
func RequireDatastore(checker port.DirectoryChecker, timeout time.Duration, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		if err := checker.Ping(ctx); err != nil {
			log.Warn("datastore ping failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
				Error:   "service unavailable",
				TraceID: GetTraceID(c),
			})
			return
		}

		c.Next()
	}
}
