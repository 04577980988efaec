package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/attestra/credential-platform/internal/transport/http/middleware"
	"github.com/attestra/credential-platform/internal/usecase"
)

// AdminSubjectHandler exposes administrative endpoints for subject
// authorization facts: inspection, verification, role assignment, and the
// first-admin bootstrap.
type AdminSubjectHandler struct {
	authz  *usecase.AuthorizationService
	admin  *usecase.SubjectAdminService
	logger *zap.Logger
}

// NewAdminSubjectHandler constructs a new handler instance.
func NewAdminSubjectHandler(authz *usecase.AuthorizationService, admin *usecase.SubjectAdminService, logger *zap.Logger) *AdminSubjectHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminSubjectHandler{authz: authz, admin: admin, logger: logger}
}

// GetSubject handles GET /admin/subjects/{subjectId} requests. The read goes
// through the entry store, so the response reflects what the authorization
// pipeline itself would currently decide on.
func (h *AdminSubjectHandler) GetSubject(c *gin.Context) {
	subjectID := strings.TrimSpace(c.Param("subjectId"))
	if subjectID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "subjectId is required"))
		return
	}

	info, err := h.authz.SubjectInfo(c.Request.Context(), subjectID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrSubjectNotFound, Status: http.StatusNotFound, Message: "subject not found", Reason: string(domain.DenialSubjectNotFound)},
		}, http.StatusInternalServerError, "failed to resolve subject")
		return
	}

	c.JSON(http.StatusOK, newSubjectResponse(info))
}

// UpdateVerification handles PUT /admin/subjects/{subjectId}/verification requests.
func (h *AdminSubjectHandler) UpdateVerification(c *gin.Context) {
	subjectID := strings.TrimSpace(c.Param("subjectId"))
	if subjectID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "subjectId is required"))
		return
	}

	var req VerificationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Verified == nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "verified is required"))
		return
	}

	actor := actorFromContext(c)
	if err := h.admin.SetVerification(c.Request.Context(), subjectID, *req.Verified, actor); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSubjectNotFound, Status: http.StatusNotFound, Message: "subject not found", Reason: string(domain.DenialSubjectNotFound)},
		}, http.StatusInternalServerError, "failed to update verification")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification updated"})
}

// UpdateRole handles PUT /admin/subjects/{subjectId}/role requests.
func (h *AdminSubjectHandler) UpdateRole(c *gin.Context) {
	subjectID := strings.TrimSpace(c.Param("subjectId"))
	if subjectID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "subjectId is required"))
		return
	}

	var req RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	role := domain.Role(strings.TrimSpace(strings.ToLower(req.Role)))
	actor := actorFromContext(c)

	if err := h.admin.ChangeRole(c.Request.Context(), subjectID, role, actor); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Message: "invalid role", Reason: "invalid_role"},
			{Err: usecase.ErrSubjectNotFound, Status: http.StatusNotFound, Message: "subject not found", Reason: string(domain.DenialSubjectNotFound)},
		}, http.StatusInternalServerError, "failed to update role")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role updated"})
}

// SetupStatus handles GET /admin/setup requests. The route is public so a
// fresh deployment's UI can decide whether to show the bootstrap screen.
func (h *AdminSubjectHandler) SetupStatus(c *gin.Context) {
	exists, err := h.authz.AdminExists(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to resolve setup status"))
		return
	}

	c.JSON(http.StatusOK, SetupStatusResponse{AdminExists: exists})
}

// Bootstrap handles POST /admin/setup requests. The route carries no role
// gate: on a fresh deployment there is no admin yet to pass one. The service
// itself refuses a second bootstrap.
func (h *AdminSubjectHandler) Bootstrap(c *gin.Context) {
	var req BootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "subject_id is required"))
		return
	}

	subjectID := strings.TrimSpace(req.SubjectID)
	if subjectID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "subject_id is required"))
		return
	}

	if err := h.admin.BootstrapAdmin(c.Request.Context(), subjectID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAdminAlreadyExists, Status: http.StatusConflict, Message: "admin already exists", Reason: "admin_already_exists"},
			{Err: usecase.ErrSubjectNotFound, Status: http.StatusNotFound, Message: "subject not found", Reason: string(domain.DenialSubjectNotFound)},
		}, http.StatusInternalServerError, "failed to bootstrap admin")
		return
	}

	h.logger.Info("first admin bootstrapped", zap.String("subject_id", subjectID))
	c.JSON(http.StatusCreated, MessageResponse{Message: "admin bootstrapped"})
}

// actorFromContext prefers the enriched subject info and falls back to the
// raw session subject id.
func actorFromContext(c *gin.Context) string {
	if info := middleware.GetSubjectInfo(c); info != nil {
		return info.SubjectID
	}
	return middleware.GetSubjectID(c)
}
