// Package domain contains core business entities and rules.
package domain

import "time"

// Quote represents a quotation with its author.
// This is a domain entity - it has no knowledge of external systems.
type Quote struct {
	// ID is the stable numeric identifier assigned at seed time.
	ID int

	// Text is the text of the quote. Immutable once created.
	Text string

	// Author is who said or wrote the quote. Immutable once created.
	Author string

	// LikeCount is derived from the like relation at read time.
	// It is never stored alongside the quote.
	LikeCount int
}

// UserLike records that a user has liked a quote.
// The (Username, QuoteID) pair is unique: a user can like a quote
// at most once.
type UserLike struct {
	// Username identifies the liking user.
	Username string

	// QuoteID references Quote.ID. The store does not enforce this;
	// referential integrity is the service's responsibility.
	QuoteID int

	// LikedAt is when the like was first recorded.
	LikedAt time.Time

	// Order is the position in the user's custom favorites sequence.
	// Nil sorts after all non-nil values. Orders are assigned as
	// max(existing)+1 at like time and are never reused, so gaps
	// appear after deletes.
	Order *int
}

// UserView records that a user has seen a quote. Re-viewing updates
// ViewedAt rather than creating a second record.
type UserView struct {
	Username string
	QuoteID  int
	ViewedAt time.Time
}

// UserProgress is a per-user cursor pointing at the last quote shown.
// It is advanced on every authenticated quote fetch.
type UserProgress struct {
	Username    string
	LastQuoteID int
	UpdatedAt   time.Time
}
