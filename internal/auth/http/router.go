package http

import (
	"log/slog"
	"net/http"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/service"
	"github.com/makerden/memberauth/internal/auth/store"
	"github.com/makerden/memberauth/pkg/httpx"
	"github.com/makerden/memberauth/pkg/jwtx"
	"github.com/makerden/memberauth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys     *jwtx.KeyManager
	sessions *SessionResolver
	issuer   string
	loginURL string
	logger   *slog.Logger

	store            store.Store
	AuthorizeService *service.AuthorizeService
	TokenService     *service.TokenService
	ResourceService  *service.ResourceService
	ClientService    *service.ClientService
	ConsentCodec     *service.ConsentCodec
}

func NewRouter(
	keys *jwtx.KeyManager,
	issuer, loginURL string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:      http.NewServeMux(),
		keys:     keys,
		sessions: &SessionResolver{Verifier: keys.Verifier()},
		issuer:   issuer,
		loginURL: loginURL,
		logger:   logger,
		store:    st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerResources()
	r.registerClients()
	r.registerWellKnown()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	authorizeHandler := &AuthorizeHandler{
		AuthorizeService: r.AuthorizeService,
		Codec:            r.ConsentCodec,
		Sessions:         r.sessions,
		LoginURL:         r.loginURL,
	}

	// GET /oauth/authorize - lenient rate limit (renders the consent form)
	r.Mux.Handle("GET /oauth/authorize",
		httpx.Chain(authorizeHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /oauth/callback - strict rate limit (mints grants)
	callbackHandler := &CallbackHandler{
		AuthorizeService: r.AuthorizeService,
		Codec:            r.ConsentCodec,
		Sessions:         r.sessions,
		LoginURL:         r.loginURL,
	}
	r.Mux.Handle("POST /oauth/callback",
		httpx.Chain(callbackHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /oauth/access-token - strict rate limit by IP + client_id to
	// slow secret brute forcing
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth/access-token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "client_id"),
		),
	)

	// GET /oauth/verify-token - no authn middleware: failures must return
	// the uniform invalid shape, never a 401
	verifyHandler := &VerifyHandler{ResourceService: r.ResourceService}
	r.Mux.Handle("GET /oauth/verify-token",
		httpx.Chain(verifyHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerResources() {
	authUser := httpx.Chain(&AuthUserHandler{ResourceService: r.ResourceService},
		httpx.AuthnMiddleware(r.ResourceService),
		httpx.RequireAnyScope(domain.ScopeBasicInfo),
		httpx.RateLimitByIP(httpx.LenientLimit),
	)
	r.Mux.Handle("GET /oauth/resources/authuser", authUser)

	userInfo := httpx.Chain(&UserInfoHandler{ResourceService: r.ResourceService},
		httpx.AuthnMiddleware(r.ResourceService),
		httpx.RequireAnyScope(domain.ScopeOpenID),
		httpx.RateLimitByIP(httpx.LenientLimit),
	)
	r.Mux.Handle("GET /oauth/resources/userinfo", userInfo)
}

func (r *Router) registerClients() {
	h := &ClientsHandler{
		ClientService:   r.ClientService,
		ResourceService: r.ResourceService,
		Sessions:        r.sessions,
	}

	moderate := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, httpx.RateLimitByIP(httpx.ModerateLimit))
	}

	r.Mux.Handle("POST /v1/clients", moderate(h.HandleCreate))
	r.Mux.Handle("GET /v1/clients", moderate(h.HandleList))
	r.Mux.Handle("GET /v1/clients/{id}", moderate(h.HandleGet))
	r.Mux.Handle("PATCH /v1/clients/{id}", moderate(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/clients/{id}", moderate(h.HandleDelete))

	r.Mux.Handle("POST /v1/clients/{id}/secrets", moderate(h.HandleAddSecret))
	r.Mux.Handle("GET /v1/clients/{id}/secrets", moderate(h.HandleListSecrets))
	r.Mux.Handle("DELETE /v1/clients/{id}/secrets/{fingerprint}", moderate(h.HandleDeleteSecret))

	r.Mux.Handle("GET /v1/clients/{id}/managers", moderate(h.HandleListManagers))
	r.Mux.Handle("POST /v1/clients/{id}/managers", moderate(h.HandleAddManager))
	r.Mux.Handle("DELETE /v1/clients/{id}/managers/{user_id}", moderate(h.HandleRemoveManager))
}

func (r *Router) registerWellKnown() {
	r.Mux.Handle("GET /.well-known/openid-configuration",
		httpx.Chain(DiscoveryHandler(r.issuer),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler())
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.store, r.keys))
}
