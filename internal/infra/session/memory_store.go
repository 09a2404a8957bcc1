// Package session holds the process-wide session table.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lecturehall/internal/domain/entity"
	"lecturehall/internal/domain/service"

	"go.uber.org/fx"
)

// MemoryStore is a SessionStore guarded by a single map-wide lock.
// Nothing is persisted: a restart invalidates every session.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entity.Session
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*entity.Session),
		now:      time.Now,
	}
}

// Params defines the dependencies of the fx-managed store.
type Params struct {
	fx.In
	fx.Lifecycle

	Logger *slog.Logger
}

// New provides the session store to fx and drops all sessions on shutdown.
func New(params Params) service.SessionStore {
	store := NewMemoryStore()

	params.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			params.Logger.Info("Dropping in-memory sessions", slog.Int("count", store.Len()))

			return store.Close()
		},
	})

	return store
}

// Put stores a copy of the session under its id.
func (s *MemoryStore) Put(_ context.Context, session *entity.Session) error {
	clone := *session

	s.mu.Lock()
	s.sessions[session.ID] = &clone
	s.mu.Unlock()

	return nil
}

// Get returns a copy of the session. Expired sessions are evicted on access.
func (s *MemoryStore) Get(_ context.Context, id string) (*entity.Session, bool) {
	s.mu.RLock()
	stored, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if stored.Expired(s.now()) {
		s.mu.Lock()
		// Re-check under the write lock, the entry may have been replaced meanwhile.
		if current, exists := s.sessions[id]; exists && current == stored {
			delete(s.sessions, id)
		}
		s.mu.Unlock()

		return nil, false
	}

	clone := *stored

	return &clone, true
}

// Delete removes a session; unknown ids are ignored.
func (s *MemoryStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len reports the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// Close empties the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.sessions = make(map[string]*entity.Session)
	s.mu.Unlock()

	return nil
}
