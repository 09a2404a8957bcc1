package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is the identity snapshot bound to a bearer token at login.
// The role is captured at issuance and is not refreshed when the account changes.
type Session struct {
	ID         string    // Random token identifier, the lookup key in the session store.
	AccountID  uuid.UUID // Back-reference to the owning account.
	Identifier string    // Username or email at issuance, echoed by the "me" endpoint.
	Role       Role      // Role snapshot at issuance.
	IssuedAt   time.Time
	ExpiresAt  time.Time // Zero value means the session lives until logout or restart.
}

// Expired reports whether the session has a deadline that has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
