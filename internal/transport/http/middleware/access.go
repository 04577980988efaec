package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/attestra/credential-platform/internal/usecase"
)

const subjectInfoKey = "subject_info"

// RequireAccess evaluates the route's access policy against the session's
// subject. It is installed only on routes whose policy needs a role lookup;
// session-only routes never touch the role cache. A denial aborts before the
// handler runs.
func RequireAccess(authz *usecase.AuthorizationService, policy domain.AccessPolicy, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		subjectID := GetSubjectID(c)

		decision, err := authz.Authorize(c.Request.Context(), subjectID, policy)
		if err != nil {
			log.Error("authorization failed",
				zap.String("subject_id", subjectID),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal server error",
				TraceID: GetTraceID(c),
			})
			return
		}

		if !decision.Allowed {
			c.AbortWithStatusJSON(denialStatus(decision.Reason),
				newErrorResponse(c, denialMessage(decision.Reason), decision.Reason))
			return
		}

		if decision.Subject != nil {
			c.Set(subjectInfoKey, decision.Subject)
		}

		c.Next()
	}
}

// GetSubjectInfo retrieves the subject info resolved by RequireAccess.
// Handlers behind a role-gated route read it instead of re-querying.
func GetSubjectInfo(c *gin.Context) *domain.SubjectInfo {
	if value, exists := c.Get(subjectInfoKey); exists {
		if info, ok := value.(*domain.SubjectInfo); ok {
			return info
		}
	}
	return nil
}
