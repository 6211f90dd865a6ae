package dto

import "github.com/ebulter/quote-service/internal/app"

// DefaultPageSize is the default number of items per page.
const DefaultPageSize = 20

// MaxPageSize is the maximum allowed items per page.
const MaxPageSize = 100

// PageRequest represents page-based listing parameters from the query
// string.
type PageRequest struct {
	// Page is 1-based.
	Page int `form:"page" validate:"omitempty,gte=1"`

	// PageSize is the maximum number of items to return (1-100, default 20).
	PageSize int `form:"pageSize" validate:"omitempty,gte=1,lte=100"`

	// Search filters on a substring of quote text or author.
	Search string `form:"search"`

	// SortBy orders the listing. One of: id, author, likes.
	SortBy string `form:"sortBy" validate:"omitempty,oneof=id author likes"`
}

// GetPage returns the page with defaults applied.
func (p *PageRequest) GetPage() int {
	if p.Page < 1 {
		return 1
	}

	return p.Page
}

// GetPageSize returns the page size with defaults applied.
func (p *PageRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}

	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}

	return p.PageSize
}

// PagedResponse is a generic page-based listing response.
type PagedResponse[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// NewQuotePageResponse maps a catalog listing result to its wire shape.
func NewQuotePageResponse(result *app.ListQuotesResult) *PagedResponse[QuoteResponse] {
	return &PagedResponse[QuoteResponse]{
		Items:      NewQuoteListResponse(result.Quotes),
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	}
}
