package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/pkg/cryptox"
	"github.com/makerden/memberauth/pkg/idx"
)

// mintGrant persists a grant the way the issuer does and returns the raw
// authorization code.
func mintGrant(t *testing.T, env *testEnv) (code string, grant domain.Token) {
	t.Helper()
	ctx := context.Background()

	code, err := cryptox.GenerateToken(cryptox.TokenSizeCode)
	require.NoError(t, err)
	access, err := cryptox.GenerateToken(cryptox.TokenSizeAccess)
	require.NoError(t, err)

	now := time.Now()
	grant = domain.Token{
		ID:            idx.New().String(),
		UserID:        env.member.ID,
		ClientID:      env.client.ID,
		CodeHash:      cryptox.FingerprintToken(code),
		AccessToken:   access,
		RedirectURI:   env.client.CallbackURLs[0],
		AuthTime:      now,
		Scopes:        []string{domain.ScopeBasicInfo},
		CodeExpiresAt: now.Add(time.Minute),
		ExpiresAt:     now.Add(time.Hour),
	}
	require.NoError(t, env.store.Tokens().CreateToken(ctx, grant))
	return code, grant
}

func TestExchangeHappyPath(t *testing.T) {
	env := newTestEnv(t)
	svc := &TokenService{Store: env.store}
	ctx := context.Background()

	code, grant := mintGrant(t, env)

	result, err := svc.Exchange(ctx, ExchangeRequest{
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  grant.RedirectURI,
		ClientID:     env.client.ID,
		ClientSecret: env.secret,
	})
	require.NoError(t, err)

	// The access token minted at consent time is returned, not a new one.
	require.Equal(t, grant.AccessToken, result.AccessToken)
	require.Equal(t, []string{domain.ScopeBasicInfo}, result.Scopes)
	require.InDelta(t, 3600, result.ExpiresIn, 10)
}

func TestExchangeSingleUseAndReplayRevocation(t *testing.T) {
	env := newTestEnv(t)
	svc := &TokenService{Store: env.store}
	resources := &ResourceService{Store: env.store, IDTokens: env.idTokens}
	ctx := context.Background()

	code, grant := mintGrant(t, env)
	req := ExchangeRequest{
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  grant.RedirectURI,
		ClientID:     env.client.ID,
		ClientSecret: env.secret,
	}

	_, err := svc.Exchange(ctx, req)
	require.NoError(t, err)

	// Second exchange is a replay: invalid_grant, and the whole grant is
	// revoked, access token included.
	_, err = svc.Exchange(ctx, req)
	require.ErrorIs(t, err, ErrInvalidGrant)

	require.False(t, resources.Verify(ctx, grant.AccessToken).TokenValid)

	// Third attempt fails the same way.
	_, err = svc.Exchange(ctx, req)
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeFailureModes(t *testing.T) {
	env := newTestEnv(t)
	svc := &TokenService{Store: env.store}
	ctx := context.Background()

	code, grant := mintGrant(t, env)
	valid := ExchangeRequest{
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  grant.RedirectURI,
		ClientID:     env.client.ID,
		ClientSecret: env.secret,
	}

	t.Run("unsupported grant type", func(t *testing.T) {
		req := valid
		req.GrantType = "client_credentials"
		_, err := svc.Exchange(ctx, req)
		require.ErrorIs(t, err, ErrUnsupportedGrantType)
	})

	t.Run("missing code", func(t *testing.T) {
		req := valid
		req.Code = ""
		_, err := svc.Exchange(ctx, req)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("unknown code", func(t *testing.T) {
		req := valid
		req.Code = "definitely-not-a-code"
		_, err := svc.Exchange(ctx, req)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("wrong client secret", func(t *testing.T) {
		req := valid
		req.ClientSecret = "wrong"
		_, err := svc.Exchange(ctx, req)
		require.ErrorIs(t, err, ErrInvalidClient)
	})

	t.Run("unknown client", func(t *testing.T) {
		req := valid
		req.ClientID = "ghost"
		_, err := svc.Exchange(ctx, req)
		require.ErrorIs(t, err, ErrInvalidClient)
	})

	t.Run("redirect mismatch", func(t *testing.T) {
		req := valid
		req.RedirectURI = "https://evil.example.test/cb"
		_, err := svc.Exchange(ctx, req)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	// None of the failures above consumed the code.
	_, err := svc.Exchange(ctx, valid)
	require.NoError(t, err)
}

func TestExchangeExpiredCode(t *testing.T) {
	env := newTestEnv(t)
	svc := &TokenService{Store: env.store}
	ctx := context.Background()

	code, err := cryptox.GenerateToken(cryptox.TokenSizeCode)
	require.NoError(t, err)

	now := time.Now()
	grant := domain.Token{
		ID:            idx.New().String(),
		UserID:        env.member.ID,
		ClientID:      env.client.ID,
		CodeHash:      cryptox.FingerprintToken(code),
		AccessToken:   "stale-access",
		RedirectURI:   env.client.CallbackURLs[0],
		AuthTime:      now,
		Scopes:        []string{domain.ScopeBasicInfo},
		CodeExpiresAt: now.Add(-time.Minute),
		ExpiresAt:     now.Add(time.Hour),
	}
	require.NoError(t, env.store.Tokens().CreateToken(ctx, grant))

	_, err = svc.Exchange(ctx, ExchangeRequest{
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  grant.RedirectURI,
		ClientID:     env.client.ID,
		ClientSecret: env.secret,
	})
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeOmittedRedirect(t *testing.T) {
	env := newTestEnv(t)
	svc := &TokenService{Store: env.store}
	ctx := context.Background()

	// The client has exactly one callback equal to the recorded redirect,
	// so omitting redirect_uri at exchange is acceptable.
	code, _ := mintGrant(t, env)
	_, err := svc.Exchange(ctx, ExchangeRequest{
		GrantType:    "authorization_code",
		Code:         code,
		ClientID:     env.client.ID,
		ClientSecret: env.secret,
	})
	require.NoError(t, err)
}
