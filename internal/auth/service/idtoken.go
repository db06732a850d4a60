package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/pkg/jwtx"
)

// IDTokenService builds and signs OpenID Connect ID tokens with the active
// ES512 key.
type IDTokenService struct {
	KeyManager *jwtx.KeyManager
	Issuer     string
	TTL        time.Duration
}

// Issue signs an ID token for member at client. accessToken may be empty
// for the id_token-only flow, in which case at_hash is omitted. Profile and
// email claims appear only when their scopes were granted.
func (s *IDTokenService) Issue(ctx context.Context, member domain.Member, clientID, accessToken, nonce string, authTime time.Time, scopes []string) (string, error) {
	now := time.Now()

	claims := jwtx.IDTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Subject:   s.PairwiseSubject(clientID, member.ID),
			Audience:  jwt.ClaimStrings{clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
		Nonce: nonce,
	}
	if !authTime.IsZero() {
		claims.AuthTime = authTime.Unix()
	}
	if accessToken != "" {
		claims.AtHash = AccessTokenHash(accessToken)
	}
	if hasScope(scopes, domain.ScopeProfile) {
		name := member.Name
		claims.Name = &name
		username := member.Username
		claims.PreferredUsername = &username
	}
	if hasScope(scopes, domain.ScopeEmail) {
		email := member.Email
		claims.Email = &email
	}

	return s.KeyManager.SignClaims(claims)
}

// PairwiseSubject derives the per-client pseudonymous subject identifier:
// HMAC-SHA512 over clientID || 0x00 || userID keyed with material derived
// from the signing key. Stable per pair, unlinkable across clients, and
// irreversible without the key.
func (s *IDTokenService) PairwiseSubject(clientID, userID string) string {
	mac := hmac.New(sha512.New, s.KeyManager.SubjectKey())
	mac.Write([]byte(clientID))
	mac.Write([]byte{0x00})
	mac.Write([]byte(userID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// AccessTokenHash computes at_hash: the left half of SHA-512 over the
// access token, base64url without padding.
func AccessTokenHash(accessToken string) string {
	sum := sha512.Sum512([]byte(accessToken))
	return base64.RawURLEncoding.EncodeToString(sum[:sha512.Size/2])
}
