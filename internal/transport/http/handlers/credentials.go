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

// CredentialHandler exposes the credential issuance endpoint, gated on
// verified issuers.
type CredentialHandler struct {
	logger *zap.Logger
}

// NewCredentialHandler builds a new credential handler instance.
func NewCredentialHandler(logger *zap.Logger) *CredentialHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialHandler{logger: logger}
}

// Issue handles POST /api/v1/credentials requests.
func (h *CredentialHandler) Issue(c *gin.Context) {
	info := middleware.GetSubjectInfo(c)
	if info == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "unauthorized"))
		return
	}

	var req IssueCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	recipientID := strings.TrimSpace(req.RecipientID)
	credentialType := strings.TrimSpace(req.CredentialType)
	if recipientID == "" || credentialType == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "recipient_id and credential_type are required"))
		return
	}

	credential := CredentialResponse{
		ID:             uuid.NewString(),
		RecipientID:    recipientID,
		CredentialType: credentialType,
		IssuerID:       info.SubjectID,
		OrgID:          info.OrgID,
		IssuedAt:       time.Now().UTC(),
	}

	h.logger.Info("credential issued",
		zap.String("credential_id", credential.ID),
		zap.String("issuer_id", credential.IssuerID),
		zap.String("recipient_id", credential.RecipientID),
		zap.String("credential_type", credential.CredentialType),
	)

	c.JSON(http.StatusCreated, credential)
}
