package impl

import (
	"context"
	"log/slog"

	deliverycontext "lecturehall/internal/delivery/context"
	"lecturehall/internal/domain/access"
	"lecturehall/internal/domain/entity"
	domainerrors "lecturehall/internal/domain/errors"
	"lecturehall/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	identity usecase.IdentityUsecase
	sessions usecase.SessionUsecase
	logger   *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	Identity usecase.IdentityUsecase
	Sessions usecase.SessionUsecase
	Logger   *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		identity: params.Identity,
		sessions: params.Sessions,
		logger:   params.Logger,
	}
}

func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Signup creates an account. It does not log the caller in.
func (srv *authService) Signup(ctx context.Context, input *usecase.CreateAccountInput) (*entity.Account, error) {
	return srv.identity.CreateAccount(ctx, input)
}

// Login verifies the credential and issues a session.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	account, err := srv.identity.VerifyCredential(ctx, input.Identifier, input.Credential)
	if err != nil {
		srv.log(ctx).Info("Login rejected", slog.Any("error", err))

		return nil, err
	}

	issued, err := srv.sessions.Issue(ctx, account)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInternalError, err.Error())
	}

	srv.log(ctx).Info("Login succeeded", slog.Any("account_id", account.ID))

	return &usecase.LoginOutput{Token: issued.Token, Session: issued.Session}, nil
}

// Logout revokes the token. It always succeeds.
func (srv *authService) Logout(ctx context.Context, token string) {
	srv.sessions.Revoke(ctx, token)
}

// Me returns the identity snapshot carried by the session.
func (srv *authService) Me(_ context.Context, actor *entity.Session) (*usecase.MeOutput, error) {
	if err := access.Authorize(actor, access.OpReadIdentity); err != nil {
		return nil, err
	}

	return &usecase.MeOutput{
		AccountID:  actor.AccountID.String(),
		Identifier: actor.Identifier,
		Role:       actor.Role,
	}, nil
}
