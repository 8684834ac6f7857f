package models

import (
	"time"

	"givebridge/pkg/domain"
)

// Session is the revocable server-side record behind an issued token. A token
// whose session is gone or revoked no longer resolves a caller.
type Session struct {
	ID        domain.SessionID `json:"id"`
	UserID    domain.UserID    `json:"user_id"`
	Role      domain.Role      `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
	RevokedAt *time.Time       `json:"revoked_at,omitempty"`
}

// Active reports whether the session can still authenticate requests.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
