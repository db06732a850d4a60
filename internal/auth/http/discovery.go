package http

import (
	"net/http"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/pkg/authsdk"
	"github.com/makerden/memberauth/pkg/httpx"
	"github.com/makerden/memberauth/pkg/jwtx"
)

// DiscoveryHandler serves the OpenID Provider metadata document. The
// contents are static per deployment.
func DiscoveryHandler(issuer string) http.HandlerFunc {
	scopes := make([]string, 0, 4)
	for _, s := range domain.ScopeCatalog() {
		scopes = append(scopes, s.Name)
	}

	doc := authsdk.DiscoveryDocument{
		Issuer:                           issuer,
		AuthorizationEndpoint:            issuer + "/oauth/authorize",
		TokenEndpoint:                    issuer + "/oauth/access-token",
		UserinfoEndpoint:                 issuer + "/oauth/resources/userinfo",
		JWKSURI:                          issuer + "/.well-known/jwks.json",
		ScopesSupported:                  scopes,
		ResponseTypesSupported:           []string{"code", "id_token", "id_token token"},
		GrantTypesSupported:              []string{"authorization_code", "implicit"},
		SubjectTypesSupported:            []string{"pairwise"},
		IDTokenSigningAlgValuesSupported: []string{jwtx.AlgorithmES512},
		TokenEndpointAuthMethods:         []string{"client_secret_post"},
		ClaimsSupported:                  []string{"iss", "sub", "aud", "exp", "iat", "nonce", "auth_time", "at_hash", "name", "preferred_username", "email"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}
