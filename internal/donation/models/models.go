package models

import (
	"time"

	id "givebridge/pkg/domain"
)

// Status is the donation's position in its lifecycle. It only ever moves
// forward (available -> requested -> donated) and only as a consequence of
// match transitions.
type Status string

const (
	StatusAvailable Status = "available"
	StatusRequested Status = "requested"
	StatusDonated   Status = "donated"
)

// Donation is an item a donor has published. Owned exclusively by its donor;
// mutated only by the match lifecycle once published.
type Donation struct {
	ID          id.DonationID
	DonorID     id.UserID
	Category    string
	Description string
	Status      Status
	// ClaimantID is set when a match on this donation is accepted.
	ClaimantID *id.UserID
	// Review is written once by the claimant, only after the donation is
	// handed over.
	Review *string
	// MediaRef is an opaque reference into the media store.
	MediaRef  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
