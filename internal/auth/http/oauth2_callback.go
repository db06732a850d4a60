package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/makerden/memberauth/internal/auth/service"
	"github.com/makerden/memberauth/pkg/authsdk"
	"github.com/makerden/memberauth/pkg/slogx"
)

// CallbackHandler serves POST /oauth/callback: the second leg of the
// consent handshake. The posted fields are re-validated from scratch and
// re-canonicalized against the consent token; only then does a decision
// get acted on.
type CallbackHandler struct {
	AuthorizeService *service.AuthorizeService
	Codec            *service.ConsentCodec
	Sessions         *SessionResolver
	LoginURL         string
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}
	form := r.PostForm

	sess := h.Sessions.Resolve(r)
	if sess == nil {
		http.Redirect(w, r, loginRedirectURL(h.LoginURL, resumeAuthorizeURL(form)), http.StatusFound)
		return
	}

	// Leg two trusts nothing from leg one: the posted parameters go
	// through full validation again before the signature check.
	params, err := h.AuthorizeService.ValidateRequest(ctx, buildAuthorizeQuery(form), sess)
	if err != nil {
		h.writeValidationError(w, r, form, err)
		return
	}

	issuedAt, err := strconv.ParseInt(strings.TrimSpace(form.Get("time")), 10, 64)
	if err != nil {
		h.redirectError(w, r, params, "invalid_request", "missing or malformed time field")
		return
	}

	cp := consentParams(params, time.Unix(issuedAt, 0))
	if err := h.Codec.Verify(cp, form.Get("auth_token"), time.Now()); err != nil {
		log.Info("consent token rejected",
			"client_id", params.Client.ID,
			"reason", err.Error(),
		)
		h.redirectError(w, r, params, "invalid_request", "consent token is invalid or expired")
		return
	}

	if form.Get("authorized") != "1" {
		h.redirectError(w, r, params, "access_denied", "the member denied the request")
		return
	}

	result, err := h.AuthorizeService.Approve(ctx, params, *sess)
	if err != nil {
		log.Error("authorization issuance failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	http.Redirect(w, r, appendRedirectParams(result.RedirectURI, result.Params, result.Fragment), http.StatusFound)
}

func (h *CallbackHandler) writeValidationError(w http.ResponseWriter, r *http.Request, form url.Values, err error) {
	log := slogx.FromContext(r.Context())

	var rerr *service.RedirectError
	switch {
	case errors.As(err, &rerr):
		http.Redirect(w, r, errorRedirectURL(rerr), http.StatusFound)

	case errors.Is(err, service.ErrLoginRequired):
		h.Sessions.ClearCookie(w)
		http.Redirect(w, r, loginRedirectURL(h.LoginURL, resumeAuthorizeURL(form)), http.StatusFound)

	case errors.Is(err, service.ErrInvalidClient):
		authsdk.NewOAuth2Error(http.StatusBadRequest, "invalid_request",
			"client_id is missing or unknown").WriteError(w)

	case errors.Is(err, service.ErrInvalidRedirect):
		authsdk.NewOAuth2Error(http.StatusBadRequest, "invalid_request",
			"redirect_uri does not match a registered callback").WriteError(w)

	default:
		log.Error("callback validation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

func (h *CallbackHandler) redirectError(w http.ResponseWriter, r *http.Request, p *service.AuthorizeParams, code, description string) {
	rerr := &service.RedirectError{
		Code:        code,
		Description: description,
		RedirectURI: p.RedirectURI,
		State:       p.State,
		Fragment:    p.Flow.Implicit(),
	}
	http.Redirect(w, r, errorRedirectURL(rerr), http.StatusFound)
}

// resumeAuthorizeURL rebuilds the GET /oauth/authorize URL from the posted
// consent fields so login can hand the member straight back into the flow.
func resumeAuthorizeURL(form url.Values) string {
	q := url.Values{}
	for _, key := range []string{"client_id", "redirect_uri", "response_type", "scope", "state", "nonce", "response_mode"} {
		if v := form.Get(key); v != "" {
			q.Set(key, v)
		}
	}
	return "/oauth/authorize?" + q.Encode()
}
