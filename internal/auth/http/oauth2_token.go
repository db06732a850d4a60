package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/makerden/memberauth/internal/auth/service"
	"github.com/makerden/memberauth/pkg/authsdk"
	"github.com/makerden/memberauth/pkg/httpx"
	"github.com/makerden/memberauth/pkg/slogx"
)

// TokenHandler serves POST /oauth/access-token.
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework;
// client authentication is client_secret_post only.
type TokenHandler struct {
	TokenService *service.TokenService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.TokenService.Exchange(ctx, service.ExchangeRequest{
		GrantType:    strings.TrimSpace(form.Get("grant_type")),
		Code:         strings.TrimSpace(form.Get("code")),
		RedirectURI:  strings.TrimSpace(form.Get("redirect_uri")),
		ClientID:     strings.TrimSpace(form.Get("client_id")),
		ClientSecret: form.Get("client_secret"),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedGrantType):
			authsdk.ErrUnsupportedGrantType.WriteError(w)
		case errors.Is(err, service.ErrInvalidClient):
			authsdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidGrant):
			authsdk.ErrInvalidGrant.WriteError(w)
		case errors.Is(err, service.ErrInvalidRequest):
			authsdk.ErrInvalidRequest.WriteError(w)
		default:
			log.Error("token exchange failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   result.ExpiresIn,
		Scope:       strings.Join(result.Scopes, " "),
	})
}
