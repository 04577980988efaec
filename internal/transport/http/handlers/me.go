package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attestra/credential-platform/internal/transport/http/middleware"
)

// MeHandler exposes session introspection for the calling subject.
type MeHandler struct{}

// NewMeHandler builds a new me handler instance.
func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

// Me handles GET /api/v1/me requests. The route is session-gated but not
// role-gated, so only the subject id is available; no role lookup happens on
// its behalf.
func (h *MeHandler) Me(c *gin.Context) {
	subjectID := middleware.GetSubjectID(c)
	if subjectID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthorized"))
		return
	}

	c.JSON(http.StatusOK, MeResponse{SubjectID: subjectID})
}
