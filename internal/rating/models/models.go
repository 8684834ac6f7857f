package models

import (
	"time"

	"givebridge/pkg/domain"
)

// Rating is a post-handover score left by one party of a completed match
// about the other.
type Rating struct {
	ID        domain.RatingID
	MatchID   domain.MatchID
	RaterID   domain.UserID
	RateeID   domain.UserID
	Score     int
	Comment   *string
	CreatedAt time.Time
}

// Summary aggregates the ratings received by a single user.
type Summary struct {
	UserID  domain.UserID
	Average float64
	Count   int
	// Donations is how many donations the user has published.
	Donations int
	Recent    []Rating
}
