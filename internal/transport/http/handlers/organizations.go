package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attestra/credential-platform/internal/transport/http/middleware"
)

// OrganizationHandler exposes the organization registration endpoint. The
// route is the one pre-verification path an issuer may take: its policy
// requires the issuer role but waives the verification gate, since approval
// of the organization is what grants verification in the first place.
type OrganizationHandler struct {
	logger *zap.Logger
}

// NewOrganizationHandler builds a new organization handler instance.
func NewOrganizationHandler(logger *zap.Logger) *OrganizationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrganizationHandler{logger: logger}
}

// Create handles POST /api/v1/organizations requests.
func (h *OrganizationHandler) Create(c *gin.Context) {
	info := middleware.GetSubjectInfo(c)
	if info == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthorized"))
		return
	}

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "name is required"))
		return
	}

	org := OrganizationResponse{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   info.SubjectID,
		Approved:  false,
		CreatedAt: time.Now().UTC(),
	}

	h.logger.Info("organization registered",
		zap.String("org_id", org.ID),
		zap.String("owner_id", org.OwnerID),
	)

	c.JSON(http.StatusCreated, org)
}
