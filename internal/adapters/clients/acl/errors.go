package acl

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ebulter/quote-service/internal/adapters/clients"
	"github.com/ebulter/quote-service/internal/domain"
)

// MapHTTPError maps a feed response or client failure to a domain error.
// Either resp or clientErr may be nil.
func MapHTTPError(resp *http.Response, clientErr error, serviceName, operation string) error {
	if clientErr != nil {
		return mapClientError(clientErr, serviceName, operation)
	}

	if resp == nil {
		return domain.NewUnavailableError(serviceName, "no response received")
	}

	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	return mapStatusCode(resp.StatusCode, serviceName, operation)
}

// mapClientError translates client-level errors to domain errors.
func mapClientError(err error, serviceName, operation string) error {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("circuit breaker open during %s", operation))

	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("max retries exceeded during %s", operation))

	default:
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("%s failed: %v", operation, err))
	}
}

// mapStatusCode translates feed HTTP status codes to domain errors.
// The feed is read-only, so anything but success collapses to a small
// set of outcomes.
func mapStatusCode(status int, serviceName, operation string) error {
	switch {
	case status == http.StatusNotFound:
		return domain.NewNotFoundError(serviceName, operation)

	case status == http.StatusTooManyRequests:
		return domain.NewUnavailableError(serviceName, "rate limit exceeded")

	case status >= http.StatusInternalServerError:
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("%s failed with status %d", operation, status))

	default:
		return domain.NewValidationError("",
			fmt.Sprintf("%s rejected with status %d", operation, status))
	}
}
