package domain

import "time"

// Client is a registered OAuth2 relying party. Redirect URIs are matched
// byte-for-byte against CallbackURLs; Scopes is the set the client may
// request at authorization time.
type Client struct {
	ID           string
	Name         string
	Description  string // shown on the consent page under the name
	LogoURI      string
	OwnerID      string // member who registered the client, always a manager
	CallbackURLs []string
	Scopes       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AllowsCallback reports whether uri exactly matches a registered callback.
func (c *Client) AllowsCallback(uri string) bool {
	for _, cb := range c.CallbackURLs {
		if cb == uri {
			return true
		}
	}
	return false
}

// AllowsScope reports whether the client may request the named scope.
func (c *Client) AllowsScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ClientSecret is one credential of a client. Clients may hold several
// active secrets at once so rotation never requires downtime. The plaintext
// is never stored; Fingerprint identifies the secret for deletion.
type ClientSecret struct {
	ID          string
	ClientID    string
	SecretHash  string // argon2id PHC encoded
	Fingerprint string // base64url SHA-256 of the plaintext
	IssuedBy    string // member who minted the secret
	CreatedAt   time.Time
}

// Manager records that a member may administer a client.
type Manager struct {
	ClientID  string
	UserID    string
	CreatedAt time.Time
}
