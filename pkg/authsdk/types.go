package authsdk

// ErrorResponse represents a standard OAuth2 error response per RFC 6749.
// Client code should use the OAuth2Error type from errors.go instead; this
// type exists for JSON unmarshaling.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g. "invalid_request").
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error.
	ErrorDescription string `json:"error_description"`
}

// TokenResponse represents the token endpoint response per RFC 6749.
// It is returned from POST /oauth/access-token on a successful
// authorization_code exchange.
type TokenResponse struct {
	// AccessToken is the opaque bearer token used to call resource endpoints.
	AccessToken string `json:"access_token"`

	// TokenType is always "bearer". ID tokens are never delivered here;
	// they travel in the implicit-flow redirect fragment.
	TokenType string `json:"token_type"`

	// ExpiresIn is the remaining lifetime of the access token in seconds.
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of scopes granted to this token.
	Scope string `json:"scope,omitempty"`
}

// VerifyResponse is returned from GET /oauth/verify-token. When the token is
// not valid only TokenValid is populated.
type VerifyResponse struct {
	TokenValid bool `json:"token_valid"`

	UserID    string `json:"user_id,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// AuthUserResponse is the read:basic_info resource payload.
type AuthUserResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// UserInfoResponse represents the OpenID Connect UserInfo payload. Name and
// Email are present only when the corresponding scope was granted.
type UserInfoResponse struct {
	Sub               string `json:"sub"`
	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
}

// DiscoveryDocument is the OpenID Provider metadata served from
// /.well-known/openid-configuration.
type DiscoveryDocument struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	UserinfoEndpoint                 string   `json:"userinfo_endpoint"`
	JWKSURI                          string   `json:"jwks_uri"`
	ScopesSupported                  []string `json:"scopes_supported"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	GrantTypesSupported              []string `json:"grant_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthMethods         []string `json:"token_endpoint_auth_methods_supported"`
	ClaimsSupported                  []string `json:"claims_supported"`
}

// CreateClientRequest registers a new OAuth2 client.
type CreateClientRequest struct {
	// Name is the display name shown on the consent page.
	Name string `json:"name"`

	// Description is shown on the consent page under the name.
	Description string `json:"description,omitempty"`

	// LogoURI is an absolute http(s) URL to the client's logo.
	LogoURI string `json:"logo_uri,omitempty"`

	// CallbackURLs are the exact redirect URIs the client may use.
	CallbackURLs []string `json:"callback_urls"`

	// Scopes the client is allowed to request.
	Scopes []string `json:"scopes"`
}

// CreateClientResponse returns the new client and its first secret.
// The secret is plaintext and is only ever returned here.
type CreateClientResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ClientInfo describes a registered client.
type ClientInfo struct {
	ClientID     string   `json:"client_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	LogoURI      string   `json:"logo_uri,omitempty"`
	CallbackURLs []string `json:"callback_urls"`
	Scopes       []string `json:"scopes"`
	OwnerID      string   `json:"owner_id"`
	CreatedAt    int64    `json:"created_at"`
}

// ListClientsResponse lists the clients the caller manages.
type ListClientsResponse struct {
	Clients []ClientInfo `json:"clients"`
}

// UpdateClientRequest changes a client's mutable fields. Nil fields are
// left unchanged.
type UpdateClientRequest struct {
	Name         *string   `json:"name,omitempty"`
	Description  *string   `json:"description,omitempty"`
	LogoURI      *string   `json:"logo_uri,omitempty"`
	CallbackURLs *[]string `json:"callback_urls,omitempty"`
	Scopes       *[]string `json:"scopes,omitempty"`
}

// SecretInfo describes a client secret without revealing it. Fingerprint is
// the value used to delete the secret.
type SecretInfo struct {
	Fingerprint string `json:"fingerprint"`
	IssuedBy    string `json:"issued_by,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// ListSecretsResponse lists a client's secret fingerprints.
type ListSecretsResponse struct {
	Secrets []SecretInfo `json:"secrets"`
}

// AddSecretResponse returns a newly minted secret. The plaintext is only
// ever returned once.
type AddSecretResponse struct {
	ClientSecret string `json:"client_secret"`
	Fingerprint  string `json:"fingerprint"`
}

// ManagerInfo identifies a member who may administer a client.
type ManagerInfo struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// ListManagersResponse lists a client's managers.
type ListManagersResponse struct {
	Managers []ManagerInfo `json:"managers"`
}

// AddManagerRequest grants a member management rights over a client.
type AddManagerRequest struct {
	UserID string `json:"user_id"`
}

// HealthResponse is returned from the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`

	Checks map[string]string `json:"checks,omitempty"`
}
