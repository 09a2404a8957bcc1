package impl

import (
	"context"
	"log/slog"
	"time"

	"lecturehall/config"
	deliverycontext "lecturehall/internal/delivery/context"
	"lecturehall/internal/domain/entity"
	"lecturehall/internal/domain/service"
	"lecturehall/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// sessionService implements the SessionUsecase interface on a TokenService and a SessionStore.
type sessionService struct {
	tokens service.TokenService
	store  service.SessionStore
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	TokenService service.TokenService
	SessionStore service.SessionStore
	Config       *config.Config
	Logger       *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	var ttl time.Duration
	if params.Config != nil && params.Config.Session != nil {
		ttl = params.Config.Session.TTL
	}

	return &sessionService{
		tokens: params.TokenService,
		store:  params.SessionStore,
		ttl:    ttl,
		now:    time.Now,
		logger: params.Logger,
	}
}

func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Issue binds a new random token to the account id and its current role.
func (srv *sessionService) Issue(ctx context.Context, account *entity.Account) (*usecase.IssuedSession, error) {
	if account == nil {
		return nil, errors.New("account is required")
	}

	tokenID, err := srv.tokens.NewTokenID()
	if err != nil {
		return nil, err
	}

	now := srv.now().UTC()
	session := &entity.Session{
		ID:         tokenID,
		AccountID:  account.ID,
		Identifier: account.Identifier,
		Role:       account.Role,
		IssuedAt:   now,
	}
	if srv.ttl > 0 {
		session.ExpiresAt = now.Add(srv.ttl)
	}

	token, err := srv.tokens.Sign(&service.TokenClaims{
		TokenID:   session.ID,
		AccountID: session.AccountID,
		Role:      session.Role,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}

	if err := srv.store.Put(ctx, session); err != nil {
		return nil, errors.Wrap(err, "failed to store session")
	}

	srv.log(ctx).Debug("Session issued", slog.Any("account_id", account.ID), slog.String("role", account.Role.String()))

	return &usecase.IssuedSession{Token: token, Session: session}, nil
}

// Resolve maps a token back to its session.
func (srv *sessionService) Resolve(ctx context.Context, token string) *entity.Session {
	if token == "" {
		return nil
	}

	claims, err := srv.tokens.Parse(token)
	if err != nil {
		srv.log(ctx).Debug("Rejected session token", slog.Any("error", err))

		return nil
	}

	session, ok := srv.store.Get(ctx, claims.TokenID)
	if !ok || session.AccountID != claims.AccountID {
		return nil
	}
	if session.Expired(srv.now()) {
		srv.store.Delete(ctx, session.ID)

		return nil
	}

	return session
}

// Revoke drops the session behind token, if any.
func (srv *sessionService) Revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}

	claims, err := srv.tokens.Parse(token)
	if err != nil {
		return
	}

	srv.store.Delete(ctx, claims.TokenID)
}
