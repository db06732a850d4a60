package cryptox_test

import (
	"encoding/base64"
	"testing"

	"github.com/makerden/memberauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("produces url-safe tokens of the expected length", func(t *testing.T) {
		token, err := cryptox.GenerateToken(cryptox.TokenSizeCode)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Len(t, raw, cryptox.TokenSizeCode)
	})

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := cryptox.GenerateToken(0)
		require.Error(t, err)

		_, err = cryptox.GenerateToken(-4)
		require.Error(t, err)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		seen := map[string]struct{}{}
		for range 100 {
			token := cryptox.MustGenerateToken(cryptox.TokenSizeAccess)
			_, dup := seen[token]
			require.False(t, dup)
			seen[token] = struct{}{}
		}
	})
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	a := cryptox.FingerprintToken("some-token")
	b := cryptox.FingerprintToken("some-token")
	c := cryptox.FingerprintToken("other-token")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)

	// SHA-256 fingerprint is 43 chars of base64url.
	require.Len(t, a, 43)
}

func TestHashAndVerifySecret(t *testing.T) {
	t.Parallel()

	secret := cryptox.MustGenerateToken(cryptox.TokenSize256)

	hash, err := cryptox.HashSecret(secret)
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$v=19$")

	require.NoError(t, cryptox.VerifySecret(secret, hash))
	require.Error(t, cryptox.VerifySecret("wrong-secret", hash))
	require.Error(t, cryptox.VerifySecret(secret, "not-a-hash"))
}

func TestGenerateAndParseES512Key(t *testing.T) {
	t.Parallel()

	pemBytes, err := cryptox.GenerateES512Key()
	require.NoError(t, err)
	require.NotEmpty(t, pemBytes)

	key, err := cryptox.ParseES512Key(pemBytes)
	require.NoError(t, err)
	require.Equal(t, "P-521", key.Curve.Params().Name)
}

func TestParseES512KeyRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := cryptox.ParseES512Key([]byte("not pem at all"))
	require.Error(t, err)
}
