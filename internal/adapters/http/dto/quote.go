package dto

import (
	"time"

	"github.com/ebulter/quote-service/internal/domain"
)

// QuoteResponse is the wire shape of a quote. The same shape carries
// error messages: clients receive id 0 with the message in quoteText and
// an empty author, so every response body parses as a quote.
type QuoteResponse struct {
	ID     int    `json:"id"`
	Text   string `json:"quoteText"`
	Author string `json:"author"`
	Likes  int    `json:"likes"`
}

// NewQuoteResponse maps a domain quote to its wire shape.
func NewQuoteResponse(q *domain.Quote) *QuoteResponse {
	return &QuoteResponse{
		ID:     q.ID,
		Text:   q.Text,
		Author: q.Author,
		Likes:  q.LikeCount,
	}
}

// NewQuoteListResponse maps a slice of domain quotes, preserving order.
func NewQuoteListResponse(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, len(quotes))
	for i := range quotes {
		out[i] = *NewQuoteResponse(&quotes[i])
	}

	return out
}

// NewErrorQuote builds the quote-shaped error body. The sentinel id 0
// never collides with catalog ids, which start at 1.
func NewErrorQuote(message string) *QuoteResponse {
	return &QuoteResponse{ID: 0, Text: message, Author: ""}
}

// ProgressResponse is the wire shape of a user's progress cursor.
type ProgressResponse struct {
	Username    string `json:"username"`
	LastQuoteID int    `json:"lastQuoteId"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// NewProgressResponse maps a domain progress cursor to its wire shape.
// A zero UpdatedAt (user with no recorded progress) is omitted.
func NewProgressResponse(p *domain.UserProgress) *ProgressResponse {
	resp := &ProgressResponse{
		Username:    p.Username,
		LastQuoteID: p.LastQuoteID,
	}

	if !p.UpdatedAt.IsZero() {
		resp.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
	}

	return resp
}

// ReorderRequest is the body of a favorites reorder call.
type ReorderRequest struct {
	Order int `json:"order" validate:"required,gt=0"`
}

// ImportResponse reports the outcome of a catalog import.
type ImportResponse struct {
	Added int `json:"added"`
}

// TotalLikesResponse reports the catalog-wide like count.
type TotalLikesResponse struct {
	TotalLikes int `json:"totalLikes"`
}
