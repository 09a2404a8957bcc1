// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"lecturehall/internal/domain/entity"
)

// --- Input DTOs ---

// CreateAccountInput defines the data required to create an account.
type CreateAccountInput struct {
	Identifier string // Username or email.
	Credential string
	InviteCode string // Optional administrator invite code.
}

// IdentityUsecase manages the durable account records.
type IdentityUsecase interface {
	// CreateAccount registers a new account. The role is decided once, here.
	CreateAccount(ctx context.Context, input *CreateAccountInput) (*entity.Account, error)

	// VerifyCredential returns the account when the credential matches.
	// Unknown identifiers and wrong credentials are indistinguishable.
	VerifyCredential(ctx context.Context, identifier, credential string) (*entity.Account, error)

	// SetRole changes the stored role. Sessions issued earlier keep their snapshot.
	SetRole(ctx context.Context, identifier string, role entity.Role) (*entity.Account, error)

	// SetCredential replaces the credential under the same length policy as creation.
	SetCredential(ctx context.Context, identifier, credential string) error

	ListAccounts(ctx context.Context) ([]*entity.Account, error)
}
