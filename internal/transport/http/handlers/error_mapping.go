package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCase maps a sentinel error to an HTTP status, a response message, and
// an optional machine-readable reason code.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
	Reason  string
}

// RespondWithMappedError resolves the provided error against known cases or
// falls back to a generic response. A matched case's reason code rides along
// so API clients can branch without parsing messages.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			resp := NewErrorResponse(c, cs.Message)
			resp.Reason = cs.Reason
			c.JSON(cs.Status, resp)
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
