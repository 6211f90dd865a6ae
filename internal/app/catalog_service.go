package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ebulter/quote-service/internal/domain"
	"github.com/ebulter/quote-service/internal/platform/logging"
	"github.com/ebulter/quote-service/internal/ports"
)

// CatalogService exposes administrative operations over the quote catalog:
// paginated listing, imports from an external quote feed, and aggregate
// like statistics.
type CatalogService struct {
	quotes   ports.QuoteStore
	activity ports.ActivityStore
	fetcher  ports.QuoteFetcher
	logger   *slog.Logger
}

// CatalogServiceConfig contains configuration for the catalog service.
type CatalogServiceConfig struct {
	Quotes   ports.QuoteStore
	Activity ports.ActivityStore
	Fetcher  ports.QuoteFetcher
	Logger   *slog.Logger
}

// NewCatalogService creates a new catalog service with the provided dependencies.
func NewCatalogService(cfg CatalogServiceConfig) *CatalogService {
	if cfg.Quotes == nil {
		panic("CatalogService: Quotes store is required")
	}

	if cfg.Activity == nil {
		panic("CatalogService: Activity store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &CatalogService{
		quotes:   cfg.Quotes,
		activity: cfg.Activity,
		fetcher:  cfg.Fetcher,
		logger:   logger.With(slog.String("component", "app.CatalogService")),
	}
}

// ListQuotesQuery describes a catalog listing request.
type ListQuotesQuery struct {
	// Page is 1-based.
	Page     int
	PageSize int
	// Search filters on a case-insensitive substring of text or author.
	Search string
	// SortBy is one of "id", "author", "likes". Empty means "id".
	SortBy string
}

// ListQuotesResult is one page of the catalog plus paging metadata.
type ListQuotesResult struct {
	Quotes     []domain.Quote
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// ListQuotes returns a filtered, sorted page of the catalog with like
// counts resolved. The catalog scan and the like counts are fetched
// concurrently; counts cover the full catalog so sorting by likes sees
// every quote, not just the requested page.
func (s *CatalogService) ListQuotes(ctx context.Context, query ListQuotesQuery) (*ListQuotesResult, error) {
	if query.Page < 1 {
		query.Page = 1
	}

	if query.PageSize < 1 || query.PageSize > 100 {
		query.PageSize = 20
	}

	all, counts, err := Parallel2(ctx,
		func(ctx context.Context) ([]domain.Quote, error) {
			return s.quotes.GetAll(ctx)
		},
		func(ctx context.Context) (map[int]int, error) {
			return s.allLikeCounts(ctx)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	for i := range all {
		all[i].LikeCount = counts[all[i].ID]
	}

	if query.Search != "" {
		needle := strings.ToLower(query.Search)
		filtered := make([]domain.Quote, 0, len(all))

		for _, q := range all {
			if strings.Contains(strings.ToLower(q.Text), needle) ||
				strings.Contains(strings.ToLower(q.Author), needle) {
				filtered = append(filtered, q)
			}
		}

		all = filtered
	}

	switch query.SortBy {
	case "", "id":
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	case "author":
		sort.SliceStable(all, func(i, j int) bool { return all[i].Author < all[j].Author })
	case "likes":
		sort.SliceStable(all, func(i, j int) bool {
			if all[i].LikeCount != all[j].LikeCount {
				return all[i].LikeCount > all[j].LikeCount
			}

			return all[i].ID < all[j].ID
		})
	default:
		return nil, domain.NewValidationError("sortBy", "must be one of: id, author, likes")
	}

	total := len(all)
	totalPages := (total + query.PageSize - 1) / query.PageSize

	start := (query.Page - 1) * query.PageSize
	if start > total {
		start = total
	}

	end := start + query.PageSize
	if end > total {
		end = total
	}

	return &ListQuotesResult{
		Quotes:     all[start:end],
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// ImportQuotes pulls a batch of quotes from the configured external feed
// and stores the ones whose text is not already in the catalog. New quotes
// get sequential ids continuing from the current maximum. Returns the
// number of quotes actually added.
func (s *CatalogService) ImportQuotes(ctx context.Context) (int, error) {
	if s.fetcher == nil {
		return 0, domain.NewUnavailableError("quote feed", "no feed configured")
	}

	fetched, err := s.fetcher.FetchQuotes(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching quotes from feed: %w", err)
	}

	existing, err := s.quotes.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading catalog for dedupe: %w", err)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, q := range existing {
		seen[normalizeQuoteText(q.Text)] = struct{}{}
	}

	maxID, err := s.quotes.MaxID(ctx)
	if err != nil {
		return 0, fmt.Errorf("finding max quote id: %w", err)
	}

	fresh := make([]domain.Quote, 0, len(fetched))

	for _, q := range fetched {
		key := normalizeQuoteText(q.Text)
		if key == "" {
			continue
		}

		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		maxID++
		q.ID = maxID
		fresh = append(fresh, q)
	}

	if len(fresh) > 0 {
		if err := s.quotes.SaveAll(ctx, fresh); err != nil {
			return 0, fmt.Errorf("saving imported quotes: %w", err)
		}
	}

	logging.FromContext(ctx).Info("quote import finished",
		slog.Int("fetched", len(fetched)),
		slog.Int("added", len(fresh)),
		slog.Int("duplicates", len(fetched)-len(fresh)),
	)

	return len(fresh), nil
}

// TotalLikes returns the number of likes across the entire catalog.
func (s *CatalogService) TotalLikes(ctx context.Context) (int, error) {
	counts, err := s.allLikeCounts(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	return total, nil
}

func (s *CatalogService) allLikeCounts(ctx context.Context) (map[int]int, error) {
	all, err := s.quotes.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	ids := make([]int, len(all))
	for i, q := range all {
		ids[i] = q.ID
	}

	counts, err := s.activity.LikeCounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("counting likes: %w", err)
	}

	return counts, nil
}

// normalizeQuoteText canonicalizes quote text for duplicate detection.
func normalizeQuoteText(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
