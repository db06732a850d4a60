package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyClientID ctxKey = "client_id"
	CtxKeyScopes   ctxKey = "scopes"
)

// UserIDFromContext returns the authenticated member id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyUserID).(string)
	return v, ok
}

// ClientIDFromContext returns the client the bearer token was issued to.
func ClientIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyClientID).(string)
	return v, ok
}

// ScopesFromContext returns the scopes granted to the bearer token.
func ScopesFromContext(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}
