package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/store/drivers/sqlite"
	"github.com/makerden/memberauth/pkg/cryptox"
	"github.com/makerden/memberauth/pkg/idx"
	"github.com/makerden/memberauth/pkg/jwtx"
)

const testIssuer = "https://auth.example.test"

type testEnv struct {
	store    *sqlite.Store
	keys     *jwtx.KeyManager
	codec    *ConsentCodec
	idTokens *IDTokenService

	member domain.Member
	client domain.Client
	secret string // plaintext client secret
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keys, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer})
	require.NoError(t, err)

	member := domain.Member{
		ID:       idx.New().String(),
		Username: "alice",
		Name:     "Alice Example",
		Email:    "alice@example.test",
	}
	require.NoError(t, st.Members().CreateMember(ctx, member))

	client := domain.Client{
		ID:      idx.New().String(),
		Name:    "Workshop Booking",
		OwnerID: member.ID,
		CallbackURLs: []string{
			"https://app.example.test/callback",
		},
		Scopes: []string{domain.ScopeBasicInfo, domain.ScopeOpenID, domain.ScopeProfile, domain.ScopeEmail},
	}
	require.NoError(t, st.Clients().CreateClient(ctx, client))
	require.NoError(t, st.Managers().AddManager(ctx, domain.Manager{ClientID: client.ID, UserID: member.ID}))

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	secretHash, err := cryptox.HashSecret(secret)
	require.NoError(t, err)
	require.NoError(t, st.ClientSecrets().CreateClientSecret(ctx, domain.ClientSecret{
		ID:          idx.New().String(),
		ClientID:    client.ID,
		SecretHash:  secretHash,
		Fingerprint: cryptox.FingerprintToken(secret),
	}))

	return &testEnv{
		store:    st,
		keys:     keys,
		codec:    &ConsentCodec{KeyManager: keys},
		idTokens: &IDTokenService{KeyManager: keys, Issuer: testIssuer, TTL: time.Hour},
		member:   member,
		client:   client,
		secret:   secret,
	}
}

func (e *testEnv) authorizeService() *AuthorizeService {
	return &AuthorizeService{
		Store:     e.store,
		Codec:     e.codec,
		IDTokens:  e.idTokens,
		CodeTTL:   time.Minute,
		AccessTTL: time.Hour,
	}
}

func (e *testEnv) session() Session {
	return Session{UserID: e.member.ID, AuthTime: time.Now().Add(-time.Minute)}
}
