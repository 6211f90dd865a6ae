package acl

import (
	"context"
	"fmt"
	"strings"

	"github.com/ebulter/quote-service/internal/adapters/clients"
	"github.com/ebulter/quote-service/internal/domain"
)

// zenQuoteDTO is the ZenQuotes wire format: q is the quote text, a the
// author, h a pre-rendered HTML blockquote we ignore.
type zenQuoteDTO struct {
	Text   string `json:"q"`
	Author string `json:"a"`
	HTML   string `json:"h"`
}

// zenRateLimitAuthor is the author ZenQuotes puts on its in-band rate
// limit notice, which arrives as a regular quote in the payload.
const zenRateLimitAuthor = "zenquotes.io"

// ZenClient fetches quote batches from the ZenQuotes feed. It implements
// ports.QuoteFetcher.
type ZenClient struct {
	BaseAdapter
}

// NewZenClient creates a ZenQuotes adapter over the given HTTP client.
func NewZenClient(client *clients.Client) *ZenClient {
	return &ZenClient{
		BaseAdapter: NewBaseAdapter(client, "zenquotes"),
	}
}

// Name implements ports.HealthChecker.
func (c *ZenClient) Name() string {
	return c.ServiceName()
}

// Check reports the feed as unhealthy while its circuit breaker is open.
// No probe request is sent: the breaker already reflects recent reality
// and probing would burn the feed's rate limit.
func (c *ZenClient) Check(_ context.Context) error {
	if c.Client().CircuitState() == clients.StateOpen {
		return fmt.Errorf("circuit breaker open")
	}

	return nil
}

// FetchQuotes retrieves one batch of quotes from the feed. Returned
// quotes carry no id; the caller assigns catalog ids. Feed entries with
// empty text and in-band service notices are dropped rather than failing
// the batch.
func (c *ZenClient) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	body, err := c.Get(ctx, "/api/quotes", "fetch quotes")
	if err != nil {
		return nil, err
	}

	dtos, err := DecodeResponse[[]zenQuoteDTO](body)
	if err != nil {
		return nil, domain.NewUnavailableError(c.ServiceName(), err.Error())
	}

	translated, err := TranslateSlice(*dtos, translateZenQuote)
	if err != nil {
		return nil, err
	}

	quotes := make([]domain.Quote, 0, len(translated))

	for _, q := range translated {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}

	return quotes, nil
}

// translateZenQuote maps a feed DTO to a domain quote. A nil result with
// a nil error means the entry should be skipped.
func translateZenQuote(dto *zenQuoteDTO) (*domain.Quote, error) {
	text := strings.TrimSpace(dto.Text)
	if text == "" {
		return nil, nil
	}

	author := strings.TrimSpace(dto.Author)
	if strings.EqualFold(author, zenRateLimitAuthor) {
		return nil, nil
	}

	if author == "" {
		author = "Unknown"
	}

	return &domain.Quote{Text: text, Author: author}, nil
}
