package models

import (
	"time"

	id "givebridge/pkg/domain"
)

// Notification is an append-only record addressed to one user. Only the read
// flag ever changes, and only from false to true.
type Notification struct {
	ID          id.NotificationID
	RecipientID id.UserID
	Message     string
	Read        bool
	CreatedAt   time.Time
}
