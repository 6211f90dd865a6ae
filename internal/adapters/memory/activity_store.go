package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ebulter/quote-service/internal/domain"
)

type likeKey struct {
	username string
	quoteID  int
}

// ActivityStore is an in-memory implementation of the per-user activity
// relations (likes, views, progress). Safe for concurrent use.
type ActivityStore struct {
	mu       sync.RWMutex
	likes    map[likeKey]domain.UserLike
	views    map[likeKey]domain.UserView
	progress map[string]domain.UserProgress

	// now is overridable in tests.
	now func() time.Time
}

// NewActivityStore creates an empty in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		likes:    make(map[likeKey]domain.UserLike),
		views:    make(map[likeKey]domain.UserView),
		progress: make(map[string]domain.UserProgress),
		now:      time.Now,
	}
}

// SaveLike records a like with order one past the user's current maximum.
// Re-liking an already-liked quote leaves the stored record untouched.
func (s *ActivityStore) SaveLike(_ context.Context, username string, quoteID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := likeKey{username, quoteID}
	if _, exists := s.likes[key]; exists {
		return nil
	}

	maxOrder := 0

	for k, like := range s.likes {
		if k.username != username || like.Order == nil {
			continue
		}

		if *like.Order > maxOrder {
			maxOrder = *like.Order
		}
	}

	order := maxOrder + 1
	s.likes[key] = domain.UserLike{
		Username: username,
		QuoteID:  quoteID,
		LikedAt:  s.now(),
		Order:    &order,
	}

	return nil
}

// GetLikes returns the user's likes ordered by their custom order,
// likes without an order last, liked-at as the tiebreak.
func (s *ActivityStore) GetLikes(_ context.Context, username string) ([]domain.UserLike, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	likes := make([]domain.UserLike, 0)

	for k, like := range s.likes {
		if k.username == username {
			likes = append(likes, like)
		}
	}

	sort.SliceStable(likes, func(i, j int) bool {
		oi, oj := likes[i].Order, likes[j].Order

		switch {
		case oi != nil && oj != nil && *oi != *oj:
			return *oi < *oj
		case oi != nil && oj == nil:
			return true
		case oi == nil && oj != nil:
			return false
		default:
			return likes[i].LikedAt.Before(likes[j].LikedAt)
		}
	})

	return likes, nil
}

// HasLiked reports whether the user has liked the quote.
func (s *ActivityStore) HasLiked(_ context.Context, username string, quoteID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.likes[likeKey{username, quoteID}]

	return ok, nil
}

// DeleteLike removes a like. Absent likes are a no-op.
func (s *ActivityStore) DeleteLike(_ context.Context, username string, quoteID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.likes, likeKey{username, quoteID})

	return nil
}

// SaveLikeOrder sets the order of an existing like. Absent likes are a
// no-op so reorder shifts racing a delete cannot resurrect a like.
func (s *ActivityStore) SaveLikeOrder(_ context.Context, username string, quoteID, order int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := likeKey{username, quoteID}

	like, ok := s.likes[key]
	if !ok {
		return nil
	}

	like.Order = &order
	s.likes[key] = like

	return nil
}

// DeleteAllLikes removes every like belonging to the user.
func (s *ActivityStore) DeleteAllLikes(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.likes {
		if k.username == username {
			delete(s.likes, k)
		}
	}

	return nil
}

// LikeCount returns how many users have liked the quote.
func (s *ActivityStore) LikeCount(_ context.Context, quoteID int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0

	for k := range s.likes {
		if k.quoteID == quoteID {
			count++
		}
	}

	return count, nil
}

// LikeCounts returns like counts for the given quote ids. Ids with no
// likes map to 0.
func (s *ActivityStore) LikeCounts(_ context.Context, quoteIDs []int) (map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int]int, len(quoteIDs))
	for _, id := range quoteIDs {
		counts[id] = 0
	}

	for k := range s.likes {
		if _, wanted := counts[k.quoteID]; wanted {
			counts[k.quoteID]++
		}
	}

	return counts, nil
}

// SaveView upserts a view record, refreshing the viewed-at timestamp.
func (s *ActivityStore) SaveView(_ context.Context, username string, quoteID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.views[likeKey{username, quoteID}] = domain.UserView{
		Username: username,
		QuoteID:  quoteID,
		ViewedAt: s.now(),
	}

	return nil
}

// GetViews returns the user's views, oldest first.
func (s *ActivityStore) GetViews(_ context.Context, username string) ([]domain.UserView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]domain.UserView, 0)

	for k, v := range s.views {
		if k.username == username {
			views = append(views, v)
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		if !views[i].ViewedAt.Equal(views[j].ViewedAt) {
			return views[i].ViewedAt.Before(views[j].ViewedAt)
		}

		return views[i].QuoteID < views[j].QuoteID
	})

	return views, nil
}

// ViewedQuoteIDs returns the set of quote ids the user has viewed.
func (s *ActivityStore) ViewedQuoteIDs(_ context.Context, username string) (map[int]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[int]struct{})

	for k := range s.views {
		if k.username == username {
			ids[k.quoteID] = struct{}{}
		}
	}

	return ids, nil
}

// HasViewed reports whether the user has viewed the quote.
func (s *ActivityStore) HasViewed(_ context.Context, username string, quoteID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.views[likeKey{username, quoteID}]

	return ok, nil
}

// DeleteAllViews removes every view belonging to the user.
func (s *ActivityStore) DeleteAllViews(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.views {
		if k.username == username {
			delete(s.views, k)
		}
	}

	return nil
}

// SaveProgress upserts the user's progress cursor.
func (s *ActivityStore) SaveProgress(_ context.Context, username string, lastQuoteID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[username] = domain.UserProgress{
		Username:    username,
		LastQuoteID: lastQuoteID,
		UpdatedAt:   s.now(),
	}

	return nil
}

// GetProgress returns the user's progress cursor or domain.ErrNotFound.
func (s *ActivityStore) GetProgress(_ context.Context, username string) (*domain.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[username]
	if !ok {
		return nil, domain.NewNotFoundError("progress", username)
	}

	return &p, nil
}

// DeleteProgress removes the user's progress cursor. Absent cursors are
// a no-op.
func (s *ActivityStore) DeleteProgress(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.progress, username)

	return nil
}
