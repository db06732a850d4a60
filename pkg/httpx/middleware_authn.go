package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/makerden/memberauth/pkg/slogx"
)

// BearerToken is the resolved identity behind an opaque access token.
type BearerToken struct {
	UserID   string
	ClientID string
	Scopes   []string
}

// TokenResolver resolves an opaque bearer token presented by a client.
// Implementations must return an error for unknown, expired or revoked
// tokens without distinguishing between those cases.
type TokenResolver interface {
	ResolveAccessToken(ctx context.Context, token string) (BearerToken, error)
}

// AuthnMiddleware authenticates requests with a Bearer access token.
// Tokens here are opaque strings looked up server-side, not JWTs.
func AuthnMiddleware(resolver TokenResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			tok, err := resolver.ResolveAccessToken(ctx, raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("bearer token rejected", "err", err)
				return
			}

			ctx = contextWithBearer(ctx, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithBearer(ctx context.Context, tok BearerToken) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, tok.UserID)
	ctx = context.WithValue(ctx, CtxKeyClientID, tok.ClientID)
	ctx = context.WithValue(ctx, CtxKeyScopes, tok.Scopes)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
