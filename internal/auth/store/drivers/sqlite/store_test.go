package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/store"
	"github.com/makerden/memberauth/internal/auth/store/drivers/sqlite"
	"github.com/makerden/memberauth/pkg/idx"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "auth.db")
	s, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedMember(t *testing.T, s *sqlite.Store) domain.Member {
	t.Helper()
	m := domain.Member{
		ID:       idx.New().String(),
		Username: idx.New().String(),
		Name:     "Alice Example",
		Email:    idx.New().String() + "@example.test",
	}
	require.NoError(t, s.Members().CreateMember(context.Background(), m))
	return m
}

func seedClient(t *testing.T, s *sqlite.Store, owner domain.Member) domain.Client {
	t.Helper()
	c := domain.Client{
		ID:           idx.New().String(),
		Name:         "Door Controller",
		Description:  "Opens the front door",
		LogoURI:      "https://door.example.test/logo.png",
		OwnerID:      owner.ID,
		CallbackURLs: []string{"https://app.example.test/callback"},
		Scopes:       []string{domain.ScopeBasicInfo, domain.ScopeOpenID},
	}
	require.NoError(t, s.Clients().CreateClient(context.Background(), c))
	return c
}

func TestMembersRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := seedMember(t, s)

	got, err := s.Members().GetMemberByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Username, got.Username)
	assert.Equal(t, m.Name, got.Name)
	assert.Equal(t, m.Email, got.Email)

	byEmail, err := s.Members().GetMemberByEmail(ctx, m.Email)
	require.NoError(t, err)
	assert.Equal(t, m.ID, byEmail.ID)

	_, err = s.Members().GetMemberByID(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestClientsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedMember(t, s)
	c := seedClient(t, s, owner)

	got, err := s.Clients().GetClientByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
	assert.Equal(t, c.Description, got.Description)
	assert.Equal(t, c.LogoURI, got.LogoURI)
	assert.Equal(t, c.CallbackURLs, got.CallbackURLs)
	assert.ElementsMatch(t, c.Scopes, got.Scopes)

	require.NoError(t, s.Clients().ReplaceClientScopes(ctx, c.ID, []string{domain.ScopeOpenID, domain.ScopeEmail}))
	got, err = s.Clients().GetClientByID(ctx, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{domain.ScopeOpenID, domain.ScopeEmail}, got.Scopes)

	// Unknown scope names are rejected by the catalog foreign key.
	err = s.Clients().ReplaceClientScopes(ctx, c.ID, []string{"not:a_scope"})
	assert.Error(t, err)
}

func TestManagers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedMember(t, s)
	other := seedMember(t, s)
	c := seedClient(t, s, owner)

	require.NoError(t, s.Managers().AddManager(ctx, domain.Manager{ClientID: c.ID, UserID: owner.ID}))
	require.NoError(t, s.Managers().AddManager(ctx, domain.Manager{ClientID: c.ID, UserID: other.ID}))

	ok, err := s.Managers().IsManager(ctx, c.ID, other.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// The owner cannot be removed from management.
	err = s.Managers().RemoveManager(ctx, c.ID, owner.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Managers().RemoveManager(ctx, c.ID, other.ID))
	ok, err = s.Managers().IsManager(ctx, c.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientSecrets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedMember(t, s)
	c := seedClient(t, s, owner)

	secret := domain.ClientSecret{
		ID:          idx.New().String(),
		ClientID:    c.ID,
		SecretHash:  "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Fingerprint: "fp-1",
		IssuedBy:    owner.ID,
	}
	require.NoError(t, s.ClientSecrets().CreateClientSecret(ctx, secret))

	secrets, err := s.ClientSecrets().ListClientSecrets(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, secrets, 1)
	assert.Equal(t, "fp-1", secrets[0].Fingerprint)
	assert.Equal(t, owner.ID, secrets[0].IssuedBy)

	require.NoError(t, s.ClientSecrets().DeleteClientSecretByFingerprint(ctx, c.ID, "fp-1"))
	err = s.ClientSecrets().DeleteClientSecretByFingerprint(ctx, c.ID, "fp-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTokensConsumeCodeOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedMember(t, s)
	c := seedClient(t, s, owner)

	now := time.Now().UTC().Truncate(time.Second)
	tok := domain.Token{
		ID:            idx.New().String(),
		UserID:        owner.ID,
		ClientID:      c.ID,
		CodeHash:      "code-fp",
		AccessToken:   "raw-access-token",
		RedirectURI:   "https://app.example.test/callback",
		Nonce:         "n-1",
		AuthTime:      now,
		Scopes:        []string{domain.ScopeOpenID},
		CodeExpiresAt: now.Add(time.Minute),
		ExpiresAt:     now.Add(time.Hour),
	}
	require.NoError(t, s.Tokens().CreateToken(ctx, tok))

	got, err := s.Tokens().GetTokenByCodeHash(ctx, "code-fp")
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, got.AccessToken)
	assert.False(t, got.CodeUsed)

	require.NoError(t, s.Tokens().ConsumeCode(ctx, tok.ID))

	// Second consumption reports not found: the conditional update matched
	// zero rows.
	err = s.Tokens().ConsumeCode(ctx, tok.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err = s.Tokens().GetTokenByCodeHash(ctx, "code-fp")
	require.NoError(t, err)
	assert.True(t, got.CodeUsed)
}

func TestTokensLookupAndHousekeeping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedMember(t, s)
	c := seedClient(t, s, owner)

	now := time.Now().UTC().Truncate(time.Second)
	expired := domain.Token{
		ID:            idx.New().String(),
		UserID:        owner.ID,
		ClientID:      c.ID,
		AccessToken:   "expired-token",
		RedirectURI:   "https://app.example.test/callback",
		AuthTime:      now.Add(-48 * time.Hour),
		Scopes:        []string{domain.ScopeBasicInfo},
		CodeExpiresAt: now.Add(-48 * time.Hour),
		ExpiresAt:     now.Add(-47 * time.Hour),
	}
	live := domain.Token{
		ID:            idx.New().String(),
		UserID:        owner.ID,
		ClientID:      c.ID,
		AccessToken:   "live-token",
		RedirectURI:   "https://app.example.test/callback",
		AuthTime:      now,
		Scopes:        []string{domain.ScopeBasicInfo},
		CodeExpiresAt: now.Add(time.Minute),
		ExpiresAt:     now.Add(time.Hour),
	}
	require.NoError(t, s.Tokens().CreateToken(ctx, expired))
	require.NoError(t, s.Tokens().CreateToken(ctx, live))

	got, err := s.Tokens().GetTokenByAccessToken(ctx, "live-token")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)

	require.NoError(t, s.Tokens().DeleteExpiredTokens(ctx, now.Add(-24*time.Hour)))

	_, err = s.Tokens().GetTokenByAccessToken(ctx, "expired-token")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Tokens().GetTokenByAccessToken(ctx, "live-token")
	require.NoError(t, err)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedMember(t, s)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		c := domain.Client{
			ID:      idx.New().String(),
			Name:    "Rollback Client",
			OwnerID: owner.ID,
		}
		if err := tx.Clients().CreateClient(ctx, c); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	clients, err := s.Clients().ListClientsManagedBy(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, clients)
}
