package service

import (
	"time"

	"lecturehall/internal/domain/entity"

	"github.com/google/uuid"
)

// TokenClaims is the signed payload carried by a session token.
type TokenClaims struct {
	TokenID   string
	AccountID uuid.UUID
	Role      entity.Role
	IssuedAt  time.Time
	ExpiresAt time.Time // Zero when the session has no deadline.
}

// TokenService signs and parses opaque session tokens.
// A token that parses is authentic; whether it is still live is decided by the SessionStore.
type TokenService interface {
	// NewTokenID returns an unguessable identifier from a cryptographically secure source.
	NewTokenID() (string, error)

	// Sign encodes the claims into a bearer token.
	Sign(claims *TokenClaims) (string, error)

	// Parse verifies the signature and returns the claims.
	Parse(token string) (*TokenClaims, error)
}
