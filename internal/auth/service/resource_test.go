package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/pkg/idx"
)

func seedAccessToken(t *testing.T, env *testEnv, scopes []string, expiresAt time.Time) domain.Token {
	t.Helper()
	grant := domain.Token{
		ID:          idx.New().String(),
		UserID:      env.member.ID,
		ClientID:    env.client.ID,
		AccessToken: "access-" + idx.New().String(),
		RedirectURI: env.client.CallbackURLs[0],
		AuthTime:    time.Now(),
		Scopes:      scopes,
		ExpiresAt:   expiresAt,
	}
	require.NoError(t, env.store.Tokens().CreateToken(context.Background(), grant))
	return grant
}

func TestVerifyAccessToken(t *testing.T) {
	env := newTestEnv(t)
	svc := &ResourceService{Store: env.store, IDTokens: env.idTokens}
	ctx := context.Background()

	grant := seedAccessToken(t, env, []string{domain.ScopeBasicInfo, domain.ScopeOpenID}, time.Now().Add(time.Hour))

	resp := svc.Verify(ctx, grant.AccessToken)
	require.True(t, resp.TokenValid)
	assert.Equal(t, env.member.ID, resp.UserID)
	assert.Equal(t, env.client.ID, resp.ClientID)
	assert.Equal(t, "read:basic_info openid", resp.Scope)
	assert.Equal(t, grant.ExpiresAt.Unix(), resp.ExpiresAt)
}

func TestVerifyUniformInvalidShape(t *testing.T) {
	env := newTestEnv(t)
	svc := &ResourceService{Store: env.store, IDTokens: env.idTokens}
	ctx := context.Background()

	expired := seedAccessToken(t, env, []string{domain.ScopeBasicInfo}, time.Now().Add(-time.Minute))

	// Missing, unknown and expired tokens all produce the exact same shape.
	for _, raw := range []string{"", "   ", "no-such-token", expired.AccessToken} {
		resp := svc.Verify(ctx, raw)
		assert.False(t, resp.TokenValid)
		assert.Empty(t, resp.UserID)
		assert.Empty(t, resp.ClientID)
		assert.Empty(t, resp.Scope)
		assert.Zero(t, resp.ExpiresAt)
	}
}

func TestResolveAccessToken(t *testing.T) {
	env := newTestEnv(t)
	svc := &ResourceService{Store: env.store, IDTokens: env.idTokens}
	ctx := context.Background()

	grant := seedAccessToken(t, env, []string{domain.ScopeBasicInfo}, time.Now().Add(time.Hour))

	bearer, err := svc.ResolveAccessToken(ctx, grant.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, env.member.ID, bearer.UserID)
	assert.Equal(t, env.client.ID, bearer.ClientID)
	assert.Equal(t, []string{domain.ScopeBasicInfo}, bearer.Scopes)

	_, err = svc.ResolveAccessToken(ctx, "bogus")
	require.ErrorIs(t, err, ErrTokenNotValid)
}

func TestAuthUser(t *testing.T) {
	env := newTestEnv(t)
	svc := &ResourceService{Store: env.store, IDTokens: env.idTokens}

	resp, err := svc.AuthUser(context.Background(), env.member.ID)
	require.NoError(t, err)
	assert.Equal(t, env.member.ID, resp.UserID)
	assert.Equal(t, env.member.Username, resp.Username)
	assert.Equal(t, "Alice Example", resp.Name)
}

func TestUserInfoClaimGating(t *testing.T) {
	env := newTestEnv(t)
	svc := &ResourceService{Store: env.store, IDTokens: env.idTokens}
	ctx := context.Background()

	wantSub := env.idTokens.PairwiseSubject(env.client.ID, env.member.ID)

	t.Run("openid only", func(t *testing.T) {
		resp, err := svc.UserInfo(ctx, env.client.ID, env.member.ID, []string{domain.ScopeOpenID})
		require.NoError(t, err)
		assert.Equal(t, wantSub, resp.Sub)
		assert.Empty(t, resp.Name)
		assert.Empty(t, resp.Email)
	})

	t.Run("full profile", func(t *testing.T) {
		resp, err := svc.UserInfo(ctx, env.client.ID, env.member.ID,
			[]string{domain.ScopeOpenID, domain.ScopeProfile, domain.ScopeEmail})
		require.NoError(t, err)
		assert.Equal(t, wantSub, resp.Sub)
		assert.Equal(t, env.member.Name, resp.Name)
		assert.Equal(t, env.member.Username, resp.PreferredUsername)
		assert.Equal(t, env.member.Email, resp.Email)
	})
}
