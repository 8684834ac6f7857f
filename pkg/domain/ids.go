package domain

import (
	"github.com/google/uuid"

	dErrors "givebridge/pkg/domain-errors"
)

// Typed IDs keep entity references from being swapped for one another at
// compile time. Handlers parse raw strings at the trust boundary; everything
// below works with the typed form.
type (
	UserID         uuid.UUID
	DonationID     uuid.UUID
	MatchID        uuid.UUID
	RatingID       uuid.UUID
	NotificationID uuid.UUID
	SessionID      uuid.UUID
)

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	return UserID(parsed), err
}

func ParseDonationID(raw string) (DonationID, error) {
	parsed, err := parseUUID(raw)
	return DonationID(parsed), err
}

func ParseMatchID(raw string) (MatchID, error) {
	parsed, err := parseUUID(raw)
	return MatchID(parsed), err
}

func ParseNotificationID(raw string) (NotificationID, error) {
	parsed, err := parseUUID(raw)
	return NotificationID(parsed), err
}

func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw)
	return SessionID(parsed), err
}

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id DonationID) String() string     { return uuid.UUID(id).String() }
func (id MatchID) String() string        { return uuid.UUID(id).String() }
func (id RatingID) String() string       { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id SessionID) String() string      { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id DonationID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id MatchID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id RatingID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewDonationID() DonationID         { return DonationID(uuid.New()) }
func NewMatchID() MatchID               { return MatchID(uuid.New()) }
func NewRatingID() RatingID             { return RatingID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }
func NewSessionID() SessionID           { return SessionID(uuid.New()) }
