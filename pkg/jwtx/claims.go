package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are carried in the member session cookie. The subject is the
// member id; AuthTime records when the member last authenticated so max_age
// checks can be enforced at authorization time.
type SessionClaims struct {
	jwt.RegisteredClaims

	AuthTime int64 `json:"auth_time"`
}

// NewSessionClaims builds session claims for a member.
func NewSessionClaims(issuer, memberID string, authTime time.Time, ttl time.Duration) SessionClaims {
	now := time.Now()
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   memberID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AuthTime: authTime.Unix(),
	}
}

// IDTokenClaims are the claims of an issued OpenID Connect ID token.
// Profile claims are pointers so they are omitted unless the corresponding
// scope was granted.
type IDTokenClaims struct {
	jwt.RegisteredClaims

	Nonce    string `json:"nonce,omitempty"`
	AuthTime int64  `json:"auth_time,omitempty"`
	AtHash   string `json:"at_hash,omitempty"`

	Name              *string `json:"name,omitempty"`
	PreferredUsername *string `json:"preferred_username,omitempty"`
	Email             *string `json:"email,omitempty"`
}
