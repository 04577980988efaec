package middleware

import (
	"net/http"

	"github.com/attestra/credential-platform/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// ErrorResponse matches the handlers.ErrorResponse structure. Reason carries
// the machine-readable denial code consumed by the UI.
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string, reason domain.DenialReason) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		Reason:  string(reason),
		TraceID: GetTraceID(c),
	}
}

// denialStatus maps a denial reason to its HTTP status code.
func denialStatus(reason domain.DenialReason) int {
	switch reason {
	case domain.DenialNoSession:
		return http.StatusUnauthorized
	case domain.DenialSubjectNotFound:
		return http.StatusNotFound
	case domain.DenialRoleNotPermitted, domain.DenialNotVerified:
		return http.StatusForbidden
	}
	return http.StatusForbidden
}

// denialMessage maps a denial reason to its human-readable error string.
func denialMessage(reason domain.DenialReason) string {
	switch reason {
	case domain.DenialNoSession:
		return "unauthorized"
	case domain.DenialSubjectNotFound:
		return "subject not found"
	case domain.DenialRoleNotPermitted:
		return "role not permitted"
	case domain.DenialNotVerified:
		return "subject not verified"
	}
	return "forbidden"
}
