package models

import (
	"time"

	id "givebridge/pkg/domain"
)

// Status is the match's lifecycle state. Pending -> {Accepted, Rejected};
// Accepted -> Completed via dual confirmation; Rejected and Completed are
// terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// IsActive reports whether the match blocks further claims on its donation.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusAccepted
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// Decision is the donor's verdict on a pending match.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func ParseDecision(raw string) (Decision, error) {
	switch Decision(raw) {
	case DecisionAccept, DecisionReject:
		return Decision(raw), nil
	default:
		return "", errInvalidDecision
	}
}

// Match links one recipient's claim to one donation. At most one match per
// donation is active (pending or accepted) at any time.
type Match struct {
	ID                 id.MatchID
	DonationID         id.DonationID
	DonorID            id.UserID
	RecipientID        id.UserID
	Status             Status
	DonorCompleted     bool
	RecipientCompleted bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PartyOf returns the caller's side of the match, or false when the caller is
// neither party.
func (m *Match) PartyOf(userID id.UserID) (id.Role, bool) {
	switch userID {
	case m.DonorID:
		return id.RoleDonor, true
	case m.RecipientID:
		return id.RoleRecipient, true
	default:
		return "", false
	}
}

// Counterpart returns the other side's user id.
func (m *Match) Counterpart(userID id.UserID) id.UserID {
	if userID == m.DonorID {
		return m.RecipientID
	}
	return m.DonorID
}

// CompletedBy reports whether the given party has already confirmed.
func (m *Match) CompletedBy(party id.Role) bool {
	if party == id.RoleDonor {
		return m.DonorCompleted
	}
	return m.RecipientCompleted
}
