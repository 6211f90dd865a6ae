// Package memory provides in-memory store adapters backed by mutex-guarded
// maps. They serve the local development profile and tests; the dynamo
// package provides the durable equivalents.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ebulter/quote-service/internal/domain"
)

// QuoteStore is an in-memory quote catalog. Safe for concurrent use.
type QuoteStore struct {
	mu     sync.RWMutex
	quotes map[int]domain.Quote
}

// NewQuoteStore creates an empty in-memory quote store.
func NewQuoteStore() *QuoteStore {
	return &QuoteStore{
		quotes: make(map[int]domain.Quote),
	}
}

// NewQuoteStoreWith creates a store preloaded with the given quotes.
func NewQuoteStoreWith(quotes []domain.Quote) *QuoteStore {
	s := NewQuoteStore()
	for _, q := range quotes {
		s.quotes[q.ID] = q
	}

	return s
}

// GetAll returns every quote, id ascending.
func (s *QuoteStore) GetAll(_ context.Context) ([]domain.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		all = append(all, q)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	return all, nil
}

// FindByID returns the quote with the given id or domain.ErrNotFound.
func (s *QuoteStore) FindByID(_ context.Context, id int) (*domain.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[id]
	if !ok {
		return nil, domain.NewQuoteNotFoundError(id)
	}

	return &q, nil
}

// Save upserts a single quote.
func (s *QuoteStore) Save(_ context.Context, quote domain.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotes[quote.ID] = quote

	return nil
}

// SaveAll upserts a batch of quotes.
func (s *QuoteStore) SaveAll(_ context.Context, quotes []domain.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range quotes {
		s.quotes[q.ID] = q
	}

	return nil
}

// MaxID returns the highest quote id, or 0 for an empty catalog.
func (s *QuoteStore) MaxID(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	maxID := 0
	for id := range s.quotes {
		if id > maxID {
			maxID = id
		}
	}

	return maxID, nil
}
