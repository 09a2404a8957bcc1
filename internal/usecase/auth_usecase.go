package usecase

import (
	"context"

	"lecturehall/internal/domain/entity"
)

// LoginInput defines the data required to log in.
type LoginInput struct {
	Identifier string
	Credential string
}

// LoginOutput returns the issued token with the role snapshot.
type LoginOutput struct {
	Token   string
	Session *entity.Session
}

// MeOutput describes the caller's own identity.
type MeOutput struct {
	AccountID  string
	Identifier string
	Role       entity.Role
}

// AuthUsecase is the account-facing flow built on IdentityUsecase and SessionUsecase.
type AuthUsecase interface {
	Signup(ctx context.Context, input *CreateAccountInput) (*entity.Account, error)
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)
	Logout(ctx context.Context, token string)
	Me(ctx context.Context, actor *entity.Session) (*MeOutput, error)
}
