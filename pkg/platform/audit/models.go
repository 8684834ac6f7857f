package audit

import (
	"context"
	"time"

	id "givebridge/pkg/domain"
)

// Action names a lifecycle transition worth keeping a trail of.
type Action string

const (
	ActionDonationPublished Action = "donation_published"
	ActionMatchClaimed      Action = "match_claimed"
	ActionMatchAccepted     Action = "match_accepted"
	ActionMatchRejected     Action = "match_rejected"
	ActionMatchConfirmed    Action = "match_confirmed"
	ActionMatchCompleted    Action = "match_completed"
	ActionRatingSubmitted   Action = "rating_submitted"
	ActionDonationReviewed  Action = "donation_reviewed"
)

// Event is emitted from domain logic to capture key transitions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Action     Action
	Timestamp  time.Time
	ActorID    id.UserID
	DonationID string
	MatchID    string
	Detail     string
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string
}

// Store receives events. The postgres implementation writes a transactional
// outbox row so the event commits with the transition that produced it.
type Store interface {
	Append(ctx context.Context, event Event) error
}
