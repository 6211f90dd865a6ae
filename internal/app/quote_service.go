// Package app contains application services that orchestrate use cases.
// This is the application layer in Clean Architecture - it coordinates
// domain logic and infrastructure through ports.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/ebulter/quote-service/internal/domain"
	"github.com/ebulter/quote-service/internal/platform/logging"
	"github.com/ebulter/quote-service/internal/ports"
)

// QuoteService orchestrates quote-related use cases on top of the
// quote catalog and the per-user activity relations.
// It depends on port interfaces, not concrete implementations.
type QuoteService struct {
	quotes   ports.QuoteStore
	activity ports.ActivityStore
	logger   *slog.Logger

	// pick selects an index in [0, n). Overridable in tests.
	pick func(n int) int
}

// QuoteServiceConfig contains configuration for the quote service.
type QuoteServiceConfig struct {
	Quotes   ports.QuoteStore
	Activity ports.ActivityStore
	Logger   *slog.Logger
}

// NewQuoteService creates a new quote service with the provided dependencies.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Quotes == nil {
		panic("QuoteService: Quotes store is required")
	}

	if cfg.Activity == nil {
		panic("QuoteService: Activity store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteService{
		quotes:   cfg.Quotes,
		activity: cfg.Activity,
		logger:   logger.With(slog.String("component", "app.QuoteService")),
		pick:     rand.IntN,
	}
}

// GetRandomQuote picks a quote uniformly at random, excluding the given ids.
// If the exclusion covers the whole catalog the pick falls back to the full
// unfiltered set: exhausting unseen quotes recycles rather than fails, so a
// session never dead-ends.
func (s *QuoteService) GetRandomQuote(ctx context.Context, excludeIDs map[int]struct{}) (*domain.Quote, error) {
	all, err := s.quotes.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading quote catalog: %w", err)
	}

	if len(all) == 0 {
		return nil, domain.NewNotFoundError("quote", "")
	}

	candidates := all
	if len(excludeIDs) > 0 {
		filtered := make([]domain.Quote, 0, len(all))
		for _, q := range all {
			if _, excluded := excludeIDs[q.ID]; !excluded {
				filtered = append(filtered, q)
			}
		}

		if len(filtered) > 0 {
			candidates = filtered
		} else {
			logging.FromContext(ctx).Info("exclusion covers entire catalog, recycling",
				slog.Int("excluded", len(excludeIDs)),
			)
		}
	}

	quote := candidates[s.pick(len(candidates))]

	count, err := s.activity.LikeCount(ctx, quote.ID)
	if err != nil {
		return nil, fmt.Errorf("counting likes for quote %d: %w", quote.ID, err)
	}

	quote.LikeCount = count

	return &quote, nil
}

// GetRandomQuoteForUser picks a random quote the user has not seen,
// merging any caller-supplied exclusions with the user's viewed set,
// then records the view and advances the progress cursor to the
// returned id. The read and the two writes are not transactional: a
// crash in between under-records a view, which is an accepted
// inconsistency.
func (s *QuoteService) GetRandomQuoteForUser(ctx context.Context, username string, excludeIDs map[int]struct{}) (*domain.Quote, error) {
	viewed, err := s.activity.ViewedQuoteIDs(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("loading viewed ids for %s: %w", username, err)
	}

	for id := range excludeIDs {
		viewed[id] = struct{}{}
	}

	quote, err := s.GetRandomQuote(ctx, viewed)
	if err != nil {
		return nil, err
	}

	if err := s.recordView(ctx, username, quote.ID); err != nil {
		return nil, err
	}

	return quote, nil
}

// GetQuoteByID returns a specific quote. When username is non-empty the
// user's progress cursor is advanced to this quote.
func (s *QuoteService) GetQuoteByID(ctx context.Context, username string, id int) (*domain.Quote, error) {
	quote, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding quote %d: %w", id, err)
	}

	count, err := s.activity.LikeCount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("counting likes for quote %d: %w", id, err)
	}

	quote.LikeCount = count

	if username != "" {
		if err := s.activity.SaveProgress(ctx, username, id); err != nil {
			return nil, fmt.Errorf("saving progress for %s: %w", username, err)
		}
	}

	return quote, nil
}

// GetPreviousQuote walks ids downward from the current one, skipping gaps,
// and returns the first quote that exists, moving the user's progress
// cursor to it. Returns domain.ErrNotFound when nothing precedes the
// current id.
func (s *QuoteService) GetPreviousQuote(ctx context.Context, username string, currentID int) (*domain.Quote, error) {
	for id := currentID - 1; id >= 1; id-- {
		quote, err := s.quotes.FindByID(ctx, id)
		if domain.IsNotFound(err) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("finding quote %d: %w", id, err)
		}

		return s.navigateTo(ctx, username, quote)
	}

	return nil, domain.NewNotFoundError("previous quote", strconv.Itoa(currentID))
}

// GetNextQuote walks ids upward from the current one, skipping gaps, and
// returns the first quote that exists, moving the user's progress cursor
// to it. Returns domain.ErrNotFound when the current id is already the
// last one.
func (s *QuoteService) GetNextQuote(ctx context.Context, username string, currentID int) (*domain.Quote, error) {
	maxID, err := s.quotes.MaxID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving max quote id: %w", err)
	}

	for id := currentID + 1; id <= maxID; id++ {
		quote, err := s.quotes.FindByID(ctx, id)
		if domain.IsNotFound(err) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("finding quote %d: %w", id, err)
		}

		return s.navigateTo(ctx, username, quote)
	}

	return nil, domain.NewNotFoundError("next quote", strconv.Itoa(currentID))
}

func (s *QuoteService) navigateTo(ctx context.Context, username string, quote *domain.Quote) (*domain.Quote, error) {
	count, err := s.activity.LikeCount(ctx, quote.ID)
	if err != nil {
		return nil, fmt.Errorf("counting likes for quote %d: %w", quote.ID, err)
	}

	quote.LikeCount = count

	if err := s.activity.SaveProgress(ctx, username, quote.ID); err != nil {
		return nil, fmt.Errorf("saving progress for %s: %w", username, err)
	}

	return quote, nil
}

// LikeQuote records a like and returns the quote with its fresh like count.
// Liking an already-liked quote succeeds without changing stored state.
// Returns domain.ErrNotFound if the quote does not exist.
func (s *QuoteService) LikeQuote(ctx context.Context, username string, quoteID int) (*domain.Quote, error) {
	quote, err := s.quotes.FindByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("finding quote %d to like: %w", quoteID, err)
	}

	if err := s.activity.SaveLike(ctx, username, quoteID); err != nil {
		return nil, fmt.Errorf("saving like: %w", err)
	}

	count, err := s.activity.LikeCount(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("counting likes for quote %d: %w", quoteID, err)
	}

	quote.LikeCount = count

	logging.FromContext(ctx).Info("quote liked",
		slog.String("username", username),
		slog.Int("quote_id", quoteID),
		slog.Int("like_count", count),
	)

	return quote, nil
}

// UnlikeQuote removes a like. Unliking a quote the user never liked is a no-op.
func (s *QuoteService) UnlikeQuote(ctx context.Context, username string, quoteID int) error {
	if err := s.activity.DeleteLike(ctx, username, quoteID); err != nil {
		return fmt.Errorf("deleting like: %w", err)
	}

	return nil
}

// GetLikedQuotes returns the user's liked quotes in their custom order.
// Likes referencing quotes that no longer exist are skipped: the store
// has no referential integrity, so dangling likes are expected.
func (s *QuoteService) GetLikedQuotes(ctx context.Context, username string) ([]domain.Quote, error) {
	likes, err := s.activity.GetLikes(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("loading likes for %s: %w", username, err)
	}

	ids := make([]int, len(likes))
	for i, like := range likes {
		ids[i] = like.QuoteID
	}

	counts, err := s.activity.LikeCounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("counting likes: %w", err)
	}

	result := make([]domain.Quote, 0, len(likes))

	for _, like := range likes {
		quote, err := s.quotes.FindByID(ctx, like.QuoteID)
		if err != nil {
			if domain.IsNotFound(err) {
				continue
			}

			return nil, fmt.Errorf("resolving liked quote %d: %w", like.QuoteID, err)
		}

		quote.LikeCount = counts[quote.ID]
		result = append(result, *quote)
	}

	return result, nil
}

// GetGlobalLikedQuotes returns every quote with at least one like,
// most-liked first, id ascending as the tiebreak. This is the anonymous
// "liked feed"; it carries no per-user data.
func (s *QuoteService) GetGlobalLikedQuotes(ctx context.Context) ([]domain.Quote, error) {
	all, err := s.withLikeCounts(ctx)
	if err != nil {
		return nil, err
	}

	liked := make([]domain.Quote, 0, len(all))
	for _, q := range all {
		if q.LikeCount > 0 {
			liked = append(liked, q)
		}
	}

	sort.SliceStable(liked, func(i, j int) bool {
		if liked[i].LikeCount != liked[j].LikeCount {
			return liked[i].LikeCount > liked[j].LikeCount
		}

		return liked[i].ID < liked[j].ID
	})

	return liked, nil
}

// ReorderLikedQuote moves the given quote to newOrder in the user's
// favorites, shifting the affected range so every other like keeps its
// relative position. Only likes between the old and new positions are
// rewritten; this is an insertion shift, not a full resort.
//
// Concurrent reorders on the same list are last-writer-wins on the
// rewritten order values. Accepted: the list belongs to a single user.
func (s *QuoteService) ReorderLikedQuote(ctx context.Context, username string, quoteID, newOrder int) error {
	if newOrder <= 0 {
		return domain.NewValidationError("order", "must be a positive integer")
	}

	likes, err := s.activity.GetLikes(ctx, username)
	if err != nil {
		return fmt.Errorf("loading likes for %s: %w", username, err)
	}

	var target *domain.UserLike

	for i := range likes {
		if likes[i].QuoteID == quoteID {
			target = &likes[i]
			break
		}
	}

	if target == nil {
		return domain.NewQuoteNotFoundError(quoteID)
	}

	oldOrder := 0
	if target.Order != nil {
		oldOrder = *target.Order
	} else {
		// Legacy likes without an order sort last; treat the list
		// position as the effective order.
		for i := range likes {
			if likes[i].QuoteID == quoteID {
				oldOrder = i + 1
				break
			}
		}
	}

	if oldOrder == newOrder {
		return nil
	}

	for _, like := range likes {
		if like.QuoteID == quoteID || like.Order == nil {
			continue
		}

		o := *like.Order

		switch {
		case newOrder > oldOrder && o > oldOrder && o <= newOrder:
			// Moving down: close the gap above.
			if err := s.activity.SaveLikeOrder(ctx, username, like.QuoteID, o-1); err != nil {
				return fmt.Errorf("shifting like order: %w", err)
			}
		case newOrder < oldOrder && o >= newOrder && o < oldOrder:
			// Moving up: make room below.
			if err := s.activity.SaveLikeOrder(ctx, username, like.QuoteID, o+1); err != nil {
				return fmt.Errorf("shifting like order: %w", err)
			}
		}
	}

	if err := s.activity.SaveLikeOrder(ctx, username, quoteID, newOrder); err != nil {
		return fmt.Errorf("saving new like order: %w", err)
	}

	logging.FromContext(ctx).Info("favorites reordered",
		slog.String("username", username),
		slog.Int("quote_id", quoteID),
		slog.Int("from", oldOrder),
		slog.Int("to", newOrder),
	)

	return nil
}

// GetViewHistory returns the quotes the user has viewed, oldest first.
// Views referencing deleted quotes are skipped.
func (s *QuoteService) GetViewHistory(ctx context.Context, username string) ([]domain.Quote, error) {
	views, err := s.activity.GetViews(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("loading views for %s: %w", username, err)
	}

	result := make([]domain.Quote, 0, len(views))

	for _, view := range views {
		quote, err := s.quotes.FindByID(ctx, view.QuoteID)
		if err != nil {
			if domain.IsNotFound(err) {
				continue
			}

			return nil, fmt.Errorf("resolving viewed quote %d: %w", view.QuoteID, err)
		}

		result = append(result, *quote)
	}

	return result, nil
}

// ClearViewHistory deletes the user's view history. The progress cursor
// is left in place; only the per-quote view records are reset.
func (s *QuoteService) ClearViewHistory(ctx context.Context, username string) error {
	if err := s.activity.DeleteAllViews(ctx, username); err != nil {
		return fmt.Errorf("clearing view history for %s: %w", username, err)
	}

	return nil
}

// GetProgress returns the user's progress cursor. A user with no recorded
// progress gets a zero-valued cursor rather than an error.
func (s *QuoteService) GetProgress(ctx context.Context, username string) (*domain.UserProgress, error) {
	progress, err := s.activity.GetProgress(ctx, username)
	if err != nil {
		if domain.IsNotFound(err) {
			return &domain.UserProgress{Username: username}, nil
		}

		return nil, fmt.Errorf("loading progress for %s: %w", username, err)
	}

	return progress, nil
}

// recordView upserts the view record and advances the progress cursor.
func (s *QuoteService) recordView(ctx context.Context, username string, quoteID int) error {
	if err := s.activity.SaveView(ctx, username, quoteID); err != nil {
		return fmt.Errorf("saving view: %w", err)
	}

	if err := s.activity.SaveProgress(ctx, username, quoteID); err != nil {
		return fmt.Errorf("saving progress: %w", err)
	}

	return nil
}

// withLikeCounts loads the full catalog with like counts resolved through
// a single batched lookup. Catalog scan and the count batch sizes are both
// bounded by the activity store implementation.
func (s *QuoteService) withLikeCounts(ctx context.Context) ([]domain.Quote, error) {
	all, err := s.quotes.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading quote catalog: %w", err)
	}

	ids := make([]int, len(all))
	for i, q := range all {
		ids[i] = q.ID
	}

	counts, err := s.activity.LikeCounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("counting likes: %w", err)
	}

	for i := range all {
		all[i].LikeCount = counts[all[i].ID]
	}

	return all, nil
}
