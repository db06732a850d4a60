package http

import (
	"net/http"

	"github.com/makerden/memberauth/pkg/httpx"
	"github.com/makerden/memberauth/pkg/jwtx"
)

// JWKSHandler exposes the public key set for ID-token verification.
func JWKSHandler(keys *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.PublicJWKS())
	}
}
