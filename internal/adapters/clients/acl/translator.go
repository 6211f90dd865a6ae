package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ebulter/quote-service/internal/adapters/clients"
)

// BaseAdapter provides common functionality for feed adapters.
type BaseAdapter struct {
	client      *clients.Client
	serviceName string
}

// NewBaseAdapter creates a new base adapter with the given client and service name.
func NewBaseAdapter(client *clients.Client, serviceName string) BaseAdapter {
	return BaseAdapter{
		client:      client,
		serviceName: serviceName,
	}
}

// Client returns the underlying HTTP client.
func (a *BaseAdapter) Client() *clients.Client {
	return a.client
}

// ServiceName returns the name of the external service.
func (a *BaseAdapter) ServiceName() string {
	return a.serviceName
}

// Get performs a GET request and returns the response body (caller must
// close). On failure, returns a mapped domain error.
func (a *BaseAdapter) Get(ctx context.Context, path, operation string) (io.ReadCloser, error) {
	resp, err := a.client.Get(ctx, path)
	if err != nil {
		return nil, MapHTTPError(nil, err, a.serviceName, operation)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer func() { _ = resp.Body.Close() }()

		return nil, MapHTTPError(resp, nil, a.serviceName, operation)
	}

	return resp.Body, nil
}

// DecodeResponse reads and decodes a JSON response body into the target type.
// Closes the body after reading.
func DecodeResponse[T any](body io.ReadCloser) (*T, error) {
	if body == nil {
		return nil, fmt.Errorf("response body is nil")
	}
	defer func() { _ = body.Close() }()

	var result T
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// Translator translates an external DTO to a domain type, returning a
// domain error when the external data fails validation.
type Translator[External any, Domain any] func(ext *External) (*Domain, error)

// TranslateSlice applies a translator function to a slice of external DTOs.
// If any translation fails, returns the first error encountered.
func TranslateSlice[E any, D any](items []E, translate Translator[E, D]) ([]*D, error) {
	result := make([]*D, 0, len(items))

	for i := range items {
		translated, err := translate(&items[i])
		if err != nil {
			return nil, fmt.Errorf("translating item %d: %w", i, err)
		}

		result = append(result, translated)
	}

	return result, nil
}
