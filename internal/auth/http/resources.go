package http

import (
	"net/http"

	"github.com/makerden/memberauth/internal/auth/service"
	"github.com/makerden/memberauth/pkg/authsdk"
	"github.com/makerden/memberauth/pkg/httpx"
	"github.com/makerden/memberauth/pkg/slogx"
)

// AuthUserHandler serves GET /oauth/resources/authuser: the minimal member
// profile behind the read:basic_info scope. Authentication and scope
// enforcement happen in the middleware chain.
type AuthUserHandler struct {
	ResourceService *service.ResourceService
}

func (h *AuthUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	resp, err := h.ResourceService.AuthUser(ctx, userID)
	if err != nil {
		log.Error("authuser lookup failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// UserInfoHandler serves GET /oauth/resources/userinfo: the standards-shaped
// claim set behind the openid scope. The subject is pairwise, matching the
// ID token.
type UserInfoHandler struct {
	ResourceService *service.ResourceService
}

func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	clientID, ok2 := httpx.ClientIDFromContext(ctx)
	if !ok || !ok2 {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}
	scopes := httpx.ScopesFromContext(ctx)

	resp, err := h.ResourceService.UserInfo(ctx, clientID, userID, scopes)
	if err != nil {
		log.Error("userinfo lookup failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
