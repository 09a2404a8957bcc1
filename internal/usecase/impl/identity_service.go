package impl

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"lecturehall/config"
	deliverycontext "lecturehall/internal/delivery/context"
	"lecturehall/internal/domain/entity"
	domainerrors "lecturehall/internal/domain/errors"
	"lecturehall/internal/domain/repository"
	"lecturehall/internal/domain/service"
	"lecturehall/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const maxIdentifierLength = 255

// identityService implements the IdentityUsecase interface.
type identityService struct {
	txManager   repository.TransactionManager
	accountRepo repository.AccountRepository
	hasher      service.PasswordHasher
	rolePolicy  service.RolePolicy
	minLength   int
	maxLength   int
	logger      *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// IdentityServiceParams holds dependencies for IdentityService, injected by Fx.
type IdentityServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	AccountRepo repository.AccountRepository
	Hasher      service.PasswordHasher
	RolePolicy  service.RolePolicy
	Config      *config.Config
	Logger      *slog.Logger
}

// NewIdentityService is the constructor for identityService.
func NewIdentityService(params IdentityServiceParams) usecase.IdentityUsecase {
	srv := &identityService{
		txManager:   params.TxManager,
		accountRepo: params.AccountRepo,
		hasher:      params.Hasher,
		rolePolicy:  params.RolePolicy,
		minLength:   6,
		maxLength:   72,
		logger:      params.Logger,
	}
	if params.Config != nil && params.Config.Auth != nil {
		if params.Config.Auth.MinCredentialLength > 0 {
			srv.minLength = params.Config.Auth.MinCredentialLength
		}
		if params.Config.Auth.MaxCredentialLength > 0 {
			srv.maxLength = params.Config.Auth.MaxCredentialLength
		}
	}

	return srv
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *identityService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// CreateAccount validates the input, hashes the credential and stores the account in one transaction.
func (srv *identityService) CreateAccount(ctx context.Context, input *usecase.CreateAccountInput) (*entity.Account, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "usernameOrEmail is required")
	}
	if utf8.RuneCountInString(identifier) > maxIdentifierLength {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "usernameOrEmail is too long")
	}
	if err := srv.checkCredentialPolicy(input.Credential); err != nil {
		return nil, err
	}

	hash, err := srv.hasher.Hash(input.Credential)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	account := &entity.Account{
		Identifier:     identifier,
		CredentialHash: hash,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.AccountRepo()

		// Only one signup at a time may decide whether it is the first account.
		if err := accountRepo.LockForSignup(ctx); err != nil {
			return storageFailure(err, "failed to serialize signup")
		}

		_, err := accountRepo.FindByIdentifier(ctx, identifier)
		if err == nil {
			return errors.Wrap(domainerrors.ErrDuplicateIdentity, "identifier already registered")
		}
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return storageFailure(err, "failed to look up identifier")
		}

		count, err := accountRepo.Count(ctx)
		if err != nil {
			return storageFailure(err, "failed to count accounts")
		}

		account.Role = srv.rolePolicy.AssignRole(service.RoleRequest{
			IsFirstAccount: count == 0,
			InviteCode:     input.InviteCode,
		})

		if err := accountRepo.Create(ctx, account); err != nil {
			if errors.Is(err, repository.ErrDuplicateIdentifier) {
				return errors.Wrap(domainerrors.ErrDuplicateIdentity, "identifier already registered")
			}

			return storageFailure(err, "failed to create account")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Account creation failed", slog.String("identifier", identifier), slog.Any("error", err))

		return nil, err
	}

	srv.log(ctx).Info("Account created", slog.Any("account_id", account.ID), slog.String("role", account.Role.String()))

	return account, nil
}

// VerifyCredential checks a credential against the stored hash. Unknown identifiers are
// compared against a throwaway hash so both failures cost the same.
func (srv *identityService) VerifyCredential(ctx context.Context, identifier, credential string) (*entity.Account, error) {
	identifier = strings.TrimSpace(identifier)

	account, err := srv.accountRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return nil, storageFailure(err, "failed to look up identifier")
		}
		srv.hasher.Check(credential, srv.placeholderHash())

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "unknown identifier")
	}

	if !srv.hasher.Check(credential, account.CredentialHash) {
		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "credential mismatch")
	}

	return account, nil
}

// SetRole changes the stored role of an account.
func (srv *identityService) SetRole(ctx context.Context, identifier string, role entity.Role) (*entity.Account, error) {
	if !role.IsValid() {
		return nil, errors.Wrapf(domainerrors.ErrValidationFailed, "unknown role %q", role)
	}

	account, err := srv.findAccount(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := srv.accountRepo.UpdateRole(ctx, account.ID, role); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, errors.Wrap(domainerrors.ErrAccountNotFound, identifier)
		}

		return nil, storageFailure(err, "failed to update role")
	}
	account.Role = role

	srv.log(ctx).Info("Account role changed", slog.Any("account_id", account.ID), slog.String("role", role.String()))

	return account, nil
}

// SetCredential replaces the credential of an account.
func (srv *identityService) SetCredential(ctx context.Context, identifier, credential string) error {
	if err := srv.checkCredentialPolicy(credential); err != nil {
		return err
	}

	account, err := srv.findAccount(ctx, identifier)
	if err != nil {
		return err
	}

	hash, err := srv.hasher.Hash(credential)
	if err != nil {
		return errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	if err := srv.accountRepo.UpdateCredential(ctx, account.ID, hash); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return errors.Wrap(domainerrors.ErrAccountNotFound, identifier)
		}

		return storageFailure(err, "failed to update credential")
	}

	srv.log(ctx).Info("Account credential changed", slog.Any("account_id", account.ID))

	return nil
}

// ListAccounts returns every account, oldest first.
func (srv *identityService) ListAccounts(ctx context.Context) ([]*entity.Account, error) {
	accounts, err := srv.accountRepo.List(ctx)
	if err != nil {
		return nil, storageFailure(err, "failed to list accounts")
	}

	return accounts, nil
}

func (srv *identityService) findAccount(ctx context.Context, identifier string) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByIdentifier(ctx, identifier)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, errors.Wrap(domainerrors.ErrAccountNotFound, identifier)
	}
	if err != nil {
		return nil, storageFailure(err, "failed to look up identifier")
	}

	return account, nil
}

func (srv *identityService) checkCredentialPolicy(credential string) error {
	if utf8.RuneCountInString(credential) < srv.minLength {
		return errors.Wrapf(domainerrors.ErrInvalidCredential, "credential must be at least %d characters", srv.minLength)
	}
	if len(credential) > srv.maxLength {
		return errors.Wrapf(domainerrors.ErrInvalidCredential, "credential must be at most %d bytes", srv.maxLength)
	}

	return nil
}

func (srv *identityService) placeholderHash() string {
	srv.dummyOnce.Do(func() {
		hash, err := srv.hasher.Hash("lecturehall-placeholder-credential")
		if err != nil {
			srv.logger.Error("Failed to prepare placeholder hash", slog.Any("error", err))

			return
		}
		srv.dummyHash = hash
	})

	return srv.dummyHash
}
