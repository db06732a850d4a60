package http

import (
	"net/http"

	"github.com/makerden/memberauth/internal/auth/store"
	"github.com/makerden/memberauth/pkg/authsdk"
	"github.com/makerden/memberauth/pkg/httpx"
	"github.com/makerden/memberauth/pkg/jwtx"
)

// LivezHandler always answers ok while the process is up.
func LivezHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{Status: "ok"})
	}
}

// ReadyzHandler checks the critical dependencies: database connectivity and
// loaded signing key material.
func ReadyzHandler(st store.Store, keys *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"signer":   "ok",
		}
		status := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
		if !keys.IsReady() {
			checks["signer"] = "error: no key loaded"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, authsdk.HealthResponse{Status: status, Checks: checks})
	}
}
