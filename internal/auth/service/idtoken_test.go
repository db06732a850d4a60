package service

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/pkg/jwtx"
)

func TestIssueIDToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	authTime := time.Now().Add(-2 * time.Minute).Truncate(time.Second)

	raw, err := env.idTokens.Issue(ctx, env.member, env.client.ID, "the-access-token", "n-abc123",
		authTime, []string{domain.ScopeOpenID, domain.ScopeProfile, domain.ScopeEmail})
	require.NoError(t, err)

	var claims jwtx.IDTokenClaims
	require.NoError(t, env.keys.Verifier().Verify(raw, &claims))

	assert.Equal(t, testIssuer, claims.Issuer)
	assert.Equal(t, []string{env.client.ID}, []string(claims.Audience))
	assert.Equal(t, "n-abc123", claims.Nonce)
	assert.Equal(t, authTime.Unix(), claims.AuthTime)
	assert.Equal(t, AccessTokenHash("the-access-token"), claims.AtHash)

	require.NotNil(t, claims.Name)
	assert.Equal(t, env.member.Name, *claims.Name)
	require.NotNil(t, claims.PreferredUsername)
	assert.Equal(t, env.member.Username, *claims.PreferredUsername)
	require.NotNil(t, claims.Email)
	assert.Equal(t, env.member.Email, *claims.Email)

	// The subject is pairwise, never the raw member ID.
	assert.NotEqual(t, env.member.ID, claims.Subject)
	assert.Equal(t, env.idTokens.PairwiseSubject(env.client.ID, env.member.ID), claims.Subject)
}

func TestIssueIDTokenClaimGating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("openid only", func(t *testing.T) {
		raw, err := env.idTokens.Issue(ctx, env.member, env.client.ID, "", "nonce",
			time.Now(), []string{domain.ScopeOpenID})
		require.NoError(t, err)

		var claims jwtx.IDTokenClaims
		require.NoError(t, env.keys.Verifier().Verify(raw, &claims))
		assert.Nil(t, claims.Name)
		assert.Nil(t, claims.Email)
		assert.Empty(t, claims.AtHash, "no access token means no at_hash")
	})

	t.Run("profile without email", func(t *testing.T) {
		raw, err := env.idTokens.Issue(ctx, env.member, env.client.ID, "", "nonce",
			time.Now(), []string{domain.ScopeOpenID, domain.ScopeProfile})
		require.NoError(t, err)

		var claims jwtx.IDTokenClaims
		require.NoError(t, env.keys.Verifier().Verify(raw, &claims))
		require.NotNil(t, claims.Name)
		assert.Nil(t, claims.Email)
	})
}

func TestPairwiseSubject(t *testing.T) {
	env := newTestEnv(t)

	subA := env.idTokens.PairwiseSubject("client-a", env.member.ID)
	subA2 := env.idTokens.PairwiseSubject("client-a", env.member.ID)
	subB := env.idTokens.PairwiseSubject("client-b", env.member.ID)

	assert.Equal(t, subA, subA2, "stable for the same client/member pair")
	assert.NotEqual(t, subA, subB, "unlinkable across clients")

	// Concatenation ambiguity: ("ab","c") and ("a","bc") must differ.
	assert.NotEqual(t,
		env.idTokens.PairwiseSubject("ab", "c"),
		env.idTokens.PairwiseSubject("a", "bc"))
}

func TestAccessTokenHash(t *testing.T) {
	sum := sha512.Sum512([]byte("token-value"))
	want := base64.RawURLEncoding.EncodeToString(sum[:32])
	assert.Equal(t, want, AccessTokenHash("token-value"))
}
