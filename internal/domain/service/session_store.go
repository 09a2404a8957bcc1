package service

import (
	"context"

	"lecturehall/internal/domain/entity"
)

// SessionStore is the process-wide token table. Implementations must be safe for concurrent use.
type SessionStore interface {
	Put(ctx context.Context, session *entity.Session) error

	// Get returns the session for a token id, or false when it is unknown.
	Get(ctx context.Context, id string) (*entity.Session, bool)

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string)

	// Len reports the number of live sessions.
	Len() int

	// Close drops every session; the store is empty afterwards.
	Close() error
}
