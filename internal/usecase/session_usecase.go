package usecase

import (
	"context"

	"lecturehall/internal/domain/entity"
)

// IssuedSession is a freshly minted bearer token and the snapshot it maps to.
type IssuedSession struct {
	Token   string
	Session *entity.Session
}

// SessionUsecase issues, resolves and revokes bearer tokens.
type SessionUsecase interface {
	Issue(ctx context.Context, account *entity.Account) (*IssuedSession, error)

	// Resolve returns nil for any token that is malformed, forged, expired or revoked.
	Resolve(ctx context.Context, token string) *entity.Session

	// Revoke is idempotent.
	Revoke(ctx context.Context, token string)
}
