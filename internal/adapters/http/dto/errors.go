// Package dto provides Data Transfer Objects for HTTP request/response handling.
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ebulter/quote-service/internal/domain"
)

// Client-facing messages for failures whose internals must not leak.
const (
	// MessageInternal is returned for unexpected server failures.
	MessageInternal = "something went wrong, please try again later"

	// MessageTimeout is returned when request processing exceeds its deadline.
	MessageTimeout = "request timed out, please try again later"

	// MessageForbidden is returned for missing or insufficient credentials.
	MessageForbidden = "access denied"
)

// StatusFromError maps a domain error to an HTTP status code.
func StatusFromError(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsUnauthorized(err), domain.IsForbidden(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// MessageFromError returns the client-facing message for a domain error.
// Validation, not-found and authorization errors carry their own message;
// everything else is sanitized with a correlation hint for log lookup.
func MessageFromError(err error, incidentID string) string {
	switch {
	case domain.IsNotFound(err), domain.IsValidation(err):
		return err.Error()
	case domain.IsUnauthorized(err), domain.IsForbidden(err):
		return MessageForbidden
	default:
		if incidentID != "" {
			return MessageInternal + " (ref: " + incidentID + ")"
		}

		return MessageInternal
	}
}

// RenderError writes the quote-shaped error body for a domain error
// and aborts the request.
func RenderError(c *gin.Context, err error) {
	status := StatusFromError(err)

	incidentID := ""
	if status == http.StatusInternalServerError {
		incidentID = uuid.NewString()
		c.Set("incident_id", incidentID)
	}

	c.AbortWithStatusJSON(status, NewErrorQuote(MessageFromError(err, incidentID)))
}
