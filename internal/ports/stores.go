// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrUnavailable, etc.)
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"

	"github.com/ebulter/quote-service/internal/domain"
)

// QuoteStore persists the canonical quote catalog.
// Quotes are seeded in bulk and read-mostly thereafter; Save and SaveAll
// are idempotent upserts keyed by Quote.ID.
type QuoteStore interface {
	// GetAll returns every quote in the catalog. LikeCount is NOT
	// populated here; callers combine it with ActivityStore.LikeCounts.
	GetAll(ctx context.Context) ([]domain.Quote, error)

	// FindByID returns the quote with the given id.
	// Returns domain.ErrNotFound if it does not exist.
	FindByID(ctx context.Context, id int) (*domain.Quote, error)

	// Save upserts a single quote by id.
	Save(ctx context.Context, quote domain.Quote) error

	// SaveAll upserts a batch of quotes.
	SaveAll(ctx context.Context, quotes []domain.Quote) error

	// MaxID returns the highest quote id in the catalog, 0 when empty.
	// Used to assign ids to newly imported quotes.
	MaxID(ctx context.Context) (int, error)
}

// ActivityStore persists all per-user relations to quotes: likes with
// manual ordering, views, and the progress cursor. Keys are per-user;
// the store's atomic put-per-key is the only concurrency primitive.
type ActivityStore interface {
	// SaveLike records that username liked quoteID. If the like already
	// exists this is a no-op: neither the order value nor the timestamp
	// changes. New likes get order = currentMax(username)+1.
	SaveLike(ctx context.Context, username string, quoteID int) error

	// GetLikes returns the user's likes sorted by order ascending,
	// nil orders last. The sort is stable.
	GetLikes(ctx context.Context, username string) ([]domain.UserLike, error)

	// HasLiked reports whether username has liked quoteID.
	HasLiked(ctx context.Context, username string, quoteID int) (bool, error)

	// DeleteLike removes the like. Remaining orders are not renumbered;
	// gaps are expected. Deleting an absent like is not an error.
	DeleteLike(ctx context.Context, username string, quoteID int) error

	// SaveLikeOrder rewrites the order value of an existing like.
	// Used by favorites reordering.
	SaveLikeOrder(ctx context.Context, username string, quoteID, order int) error

	// DeleteAllLikes removes every like for the user (account purge).
	DeleteAllLikes(ctx context.Context, username string) error

	// LikeCount returns the number of users who liked quoteID.
	LikeCount(ctx context.Context, quoteID int) (int, error)

	// LikeCounts returns like counts for a batch of quote ids.
	// Ids with no likes map to 0. Implementations batch the lookups
	// so catalog reads avoid one round-trip per quote.
	LikeCounts(ctx context.Context, quoteIDs []int) (map[int]int, error)

	// SaveView upserts the view record with viewedAt = now.
	SaveView(ctx context.Context, username string, quoteID int) error

	// GetViews returns the user's views oldest first.
	GetViews(ctx context.Context, username string) ([]domain.UserView, error)

	// ViewedQuoteIDs returns the set of quote ids the user has seen.
	ViewedQuoteIDs(ctx context.Context, username string) (map[int]struct{}, error)

	// HasViewed reports whether username has viewed quoteID.
	HasViewed(ctx context.Context, username string, quoteID int) (bool, error)

	// DeleteAllViews removes the user's entire view history.
	DeleteAllViews(ctx context.Context, username string) error

	// SaveProgress upserts the user's progress cursor.
	SaveProgress(ctx context.Context, username string, lastQuoteID int) error

	// GetProgress returns the user's cursor.
	// Returns domain.ErrNotFound when the user has no progress yet.
	GetProgress(ctx context.Context, username string) (*domain.UserProgress, error)

	// DeleteProgress removes the user's cursor.
	DeleteProgress(ctx context.Context, username string) error
}
