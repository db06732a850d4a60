package domain

import "time"

// Token is a single authorization grant. The authorization code and the
// access token are minted together in one record: the code is stored as a
// fingerprint since the client presents it back at exchange time, while the
// access token is stored raw because the exchange must return the exact
// token minted at authorization.
type Token struct {
	ID       string
	UserID   string
	ClientID string

	// CodeHash is the base64url SHA-256 fingerprint of the authorization
	// code. Empty for implicit grants, which never mint a code.
	CodeHash string

	// AccessToken is the raw opaque bearer token.
	AccessToken string

	// RedirectURI is the exact redirect used at authorization. The exchange
	// request must repeat it byte-for-byte.
	RedirectURI string

	// Nonce from the authorization request, echoed into the ID token.
	Nonce string

	// AuthTime is when the member last authenticated before this grant.
	AuthTime time.Time

	Scopes []string

	// CodeUsed flips exactly once. A second exchange attempt with the same
	// code is treated as a replay and revokes the whole grant.
	CodeUsed bool

	CodeExpiresAt time.Time
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// CodeExpired reports whether the authorization code window has passed.
func (t *Token) CodeExpired(now time.Time) bool {
	return now.After(t.CodeExpiresAt)
}

// Expired reports whether the access token has passed its lifetime.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// HasScope reports whether the grant carries the named scope.
func (t *Token) HasScope(scope string) bool {
	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
