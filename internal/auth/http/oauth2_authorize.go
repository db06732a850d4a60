package http

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/makerden/memberauth/internal/auth/service"
	"github.com/makerden/memberauth/pkg/authsdk"
	"github.com/makerden/memberauth/pkg/slogx"
)

// AuthorizeHandler serves GET /oauth/authorize: the first leg of the
// consent handshake. It validates the request, signs the consent-binding
// token and renders the consent page. No pending-request state is stored;
// everything the second leg needs travels through the form.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	Codec            *service.ConsentCodec
	Sessions         *SessionResolver
	LoginURL         string
}

func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sess := h.Sessions.Resolve(r)
	if sess == nil {
		http.Redirect(w, r, loginRedirectURL(h.LoginURL, r.URL.String()), http.StatusFound)
		return
	}

	query := r.URL.Query()
	params, err := h.AuthorizeService.ValidateRequest(ctx, buildAuthorizeQuery(query), sess)
	if err != nil {
		h.writeValidationError(w, r, err)
		return
	}

	issuedAt := time.Now()
	authToken, err := h.Codec.Issue(consentParams(params, issuedAt))
	if err != nil {
		log.Error("consent token issue failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	if err := renderConsentPage(w, params, issuedAt.Unix(), authToken); err != nil {
		log.Error("consent page render failed", "err", err)
	}
}

// writeValidationError maps the three error channels of request validation:
// pre-resolution failures are plain 400s, a forced re-authentication clears
// the cookie and bounces through login, and post-resolution failures travel
// to the client application via the redirect target.
func (h *AuthorizeHandler) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var rerr *service.RedirectError
	switch {
	case errors.As(err, &rerr):
		http.Redirect(w, r, errorRedirectURL(rerr), http.StatusFound)

	case errors.Is(err, service.ErrLoginRequired):
		h.Sessions.ClearCookie(w)
		http.Redirect(w, r, loginRedirectURL(h.LoginURL, r.URL.String()), http.StatusFound)

	case errors.Is(err, service.ErrInvalidClient):
		authsdk.NewOAuth2Error(http.StatusBadRequest, "invalid_request",
			"client_id is missing or unknown").WriteError(w)

	case errors.Is(err, service.ErrInvalidRedirect):
		authsdk.NewOAuth2Error(http.StatusBadRequest, "invalid_request",
			"redirect_uri does not match a registered callback").WriteError(w)

	default:
		log.Error("authorize validation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

func buildAuthorizeQuery(values url.Values) service.AuthorizeQuery {
	return service.AuthorizeQuery{
		ClientID:     values.Get("client_id"),
		RedirectURI:  values.Get("redirect_uri"),
		ResponseType: values.Get("response_type"),
		Scope:        values.Get("scope"),
		State:        values.Get("state"),
		Nonce:        values.Get("nonce"),
		Prompt:       values.Get("prompt"),
		MaxAge:       values.Get("max_age"),
		ResponseMode: values.Get("response_mode"),
	}
}

func consentParams(p *service.AuthorizeParams, issuedAt time.Time) service.ConsentParams {
	return service.ConsentParams{
		ClientID:     p.Client.ID,
		RedirectURI:  p.RedirectURI,
		ResponseType: p.Flow.String(),
		Scopes:       p.Scopes,
		State:        p.State,
		Nonce:        p.Nonce,
		IssuedAt:     issuedAt,
	}
}

// errorRedirectURL delivers a post-resolution failure to the client
// application as error/error_description(/state) redirect parameters.
func errorRedirectURL(rerr *service.RedirectError) string {
	values := url.Values{}
	values.Set("error", rerr.Code)
	values.Set("error_description", rerr.Description)
	if rerr.State != "" {
		values.Set("state", rerr.State)
	}
	return appendRedirectParams(rerr.RedirectURI, values, rerr.Fragment)
}

// appendRedirectParams merges values into target, either into its query
// component or as the fragment. An existing query on the registered
// callback is preserved.
func appendRedirectParams(target string, values url.Values, fragment bool) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	if fragment {
		// values.Encode() is already percent-encoded; appending it raw
		// avoids double-escaping through u.Fragment.
		return u.String() + "#" + values.Encode()
	}
	q := u.Query()
	for key, vals := range values {
		for _, v := range vals {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
