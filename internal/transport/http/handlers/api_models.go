package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attestra/credential-platform/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// SubjectResponse describes the authorization facts for one subject.
type SubjectResponse struct {
	SubjectID string `json:"subject_id"`
	Role      string `json:"role"`
	Verified  bool   `json:"verified"`
	OrgID     string `json:"org_id,omitempty"`
}

func newSubjectResponse(info *domain.SubjectInfo) SubjectResponse {
	return SubjectResponse{
		SubjectID: info.SubjectID,
		Role:      string(info.Role),
		Verified:  info.Verified,
		OrgID:     info.OrgID,
	}
}

// MeResponse describes the session introspection payload.
type MeResponse struct {
	SubjectID string `json:"subject_id"`
}

// VerificationUpdateRequest defines the payload for flipping a subject's verification flag.
type VerificationUpdateRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// RoleUpdateRequest defines the payload for reassigning a subject's role.
type RoleUpdateRequest struct {
	Role string `json:"role" binding:"required"`
}

// BootstrapRequest defines the payload for promoting the first admin.
type BootstrapRequest struct {
	SubjectID string `json:"subject_id" binding:"required"`
}

// SetupStatusResponse reports whether the platform already has an admin.
type SetupStatusResponse struct {
	AdminExists bool `json:"admin_exists"`
}

// CreateOrganizationRequest defines the payload for registering an organization.
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

// OrganizationResponse describes a registered organization pending approval.
type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// IssueCredentialRequest defines the payload for issuing a credential.
type IssueCredentialRequest struct {
	RecipientID    string `json:"recipient_id" binding:"required"`
	CredentialType string `json:"credential_type" binding:"required"`
}

// CredentialResponse describes an issued credential.
type CredentialResponse struct {
	ID             string    `json:"id"`
	RecipientID    string    `json:"recipient_id"`
	CredentialType string    `json:"credential_type"`
	IssuerID       string    `json:"issuer_id"`
	OrgID          string    `json:"org_id,omitempty"`
	IssuedAt       time.Time `json:"issued_at"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
