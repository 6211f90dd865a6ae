package ports

import (
	"context"

	"github.com/ebulter/quote-service/internal/domain"
)

// QuoteFetcher retrieves a batch of quotes from an external feed.
// Adapters translate the feed's wire format to domain quotes; fetched
// quotes arrive without ids (ID == 0) and the caller assigns them.
type QuoteFetcher interface {
	// FetchQuotes returns a batch of quotes from the external feed.
	// Returns domain.ErrUnavailable if the feed is unreachable.
	FetchQuotes(ctx context.Context) ([]domain.Quote, error)
}
