package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/attestra/credential-platform/internal/core/port"
)

// RequireSession resolves the Bearer session credential to a subject id.
// Routes carrying this middleware never reach their handler without a
// resolved subject; public routes simply omit it.
func RequireSession(verifier port.SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header", domain.DenialNoSession))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'", domain.DenialNoSession))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing session token", domain.DenialNoSession))
			return
		}

		subjectID, err := verifier.SubjectFromToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid or expired session", domain.DenialNoSession))
			return
		}

		c.Set(SubjectIDKey, subjectID)
		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.SubjectID = subjectID
		}

		c.Next()
	}
}

// GetSubjectID retrieves the session's subject id from the gin context. Empty
// means no session was resolved.
func GetSubjectID(c *gin.Context) string {
	if value, exists := c.Get(SubjectIDKey); exists {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
