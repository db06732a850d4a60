package http

import (
	"net/http"
	"strings"

	"github.com/makerden/memberauth/internal/auth/service"
	"github.com/makerden/memberauth/pkg/httpx"
)

// VerifyHandler serves GET /oauth/verify-token. It deliberately skips the
// bearer middleware: every failure, including a missing header, must yield
// the same uniform invalid shape with a 200 status so callers cannot probe
// why a token stopped working.
type VerifyHandler struct {
	ResourceService *service.ResourceService
}

func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := ""
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		raw = strings.TrimPrefix(auth, "Bearer ")
	}
	httpx.WriteJSON(w, http.StatusOK, h.ResourceService.Verify(r.Context(), raw))
}
