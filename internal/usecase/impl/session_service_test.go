package impl

import (
	"context"
	"testing"
	"time"

	"lecturehall/internal/domain/entity"
	"lecturehall/internal/infra/auth"
	"lecturehall/internal/infra/session"
	"lecturehall/internal/testsupport"
	"lecturehall/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_StoreStartsEmpty(t *testing.T) {
	f := newFixture(t)

	assert.Zero(t, f.store.Len())
}

func TestSessionService_IssueResolveRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := &entity.Account{ID: uuid.New(), Identifier: "alice", Role: entity.RoleAdmin}

	issued, err := f.sessions.Issue(ctx, account)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)

	resolved := f.sessions.Resolve(ctx, issued.Token)
	require.NotNil(t, resolved)
	assert.Equal(t, account.ID, resolved.AccountID)
	assert.Equal(t, entity.RoleAdmin, resolved.Role)

	f.sessions.Revoke(ctx, issued.Token)
	assert.Nil(t, f.sessions.Resolve(ctx, issued.Token))

	// Revoking again, or revoking garbage, is harmless.
	f.sessions.Revoke(ctx, issued.Token)
	f.sessions.Revoke(ctx, "not-a-token")
	f.sessions.Revoke(ctx, "")
}

func TestSessionService_TokensAreDistinctPerLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := &entity.Account{ID: uuid.New(), Identifier: "alice", Role: entity.RoleUser}

	first, err := f.sessions.Issue(ctx, account)
	require.NoError(t, err)
	second, err := f.sessions.Issue(ctx, account)
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, 2, f.store.Len())

	f.sessions.Revoke(ctx, first.Token)
	assert.Nil(t, f.sessions.Resolve(ctx, first.Token))
	assert.NotNil(t, f.sessions.Resolve(ctx, second.Token))
}

func TestSessionService_RejectsForeignAndMalformedTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := &entity.Account{ID: uuid.New(), Identifier: "alice", Role: entity.RoleAdmin}

	other := NewSessionService(SessionServiceParams{
		TokenService: auth.NewTokenServiceWithSecret([]byte("another-secret")),
		SessionStore: f.store,
		Config:       f.cfg,
		Logger:       testsupport.DiscardLogger(),
	})
	forged, err := other.Issue(ctx, account)
	require.NoError(t, err)

	assert.Nil(t, f.sessions.Resolve(ctx, forged.Token), "signature from another key")
	assert.Nil(t, f.sessions.Resolve(ctx, "garbage"))
	assert.Nil(t, f.sessions.Resolve(ctx, ""))
}

func TestSessionService_RoleIsSnapshotAtIssue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.identity.CreateAccount(ctx, &usecase.CreateAccountInput{Identifier: "owner", Credential: "secret1"})
	require.NoError(t, err)
	require.Equal(t, entity.RoleAdmin, account.Role)

	issued, err := f.sessions.Issue(ctx, account)
	require.NoError(t, err)

	_, err = f.identity.SetRole(ctx, "owner", entity.RoleUser)
	require.NoError(t, err)

	resolved := f.sessions.Resolve(ctx, issued.Token)
	require.NotNil(t, resolved)
	assert.Equal(t, entity.RoleAdmin, resolved.Role)
}

func TestSessionService_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Add(-2 * time.Hour)

	srv := &sessionService{
		tokens: auth.NewTokenServiceWithSecret([]byte("test-secret")),
		store:  session.NewMemoryStore(),
		ttl:    time.Hour,
		now:    func() time.Time { return now },
		logger: testsupport.DiscardLogger(),
	}

	issued, err := srv.Issue(ctx, &entity.Account{ID: uuid.New(), Identifier: "alice", Role: entity.RoleUser})
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), issued.Session.ExpiresAt, time.Second)

	// Minted two hours ago with a one hour lifetime.
	assert.Nil(t, srv.Resolve(ctx, issued.Token))
}
