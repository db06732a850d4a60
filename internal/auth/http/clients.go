package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/makerden/memberauth/internal/auth/domain"
	"github.com/makerden/memberauth/internal/auth/service"
	"github.com/makerden/memberauth/pkg/authsdk"
	"github.com/makerden/memberauth/pkg/httpx"
	"github.com/makerden/memberauth/pkg/slogx"
)

// ClientsHandler is the client management surface. Every endpoint is gated
// on the member-session cookie; everything except registration additionally
// requires the caller to manage the target client.
type ClientsHandler struct {
	ClientService   *service.ClientService
	ResourceService *service.ResourceService
	Sessions        *SessionResolver
}

// caller resolves the session or writes a 401.
func (h *ClientsHandler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	sess := h.Sessions.Resolve(r)
	if sess == nil {
		httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
			Error:            "login_required",
			ErrorDescription: "a valid member session is required",
		})
		return "", false
	}
	return sess.UserID, true
}

func (h *ClientsHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, service.ErrClientNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
			Error:            "not_found",
			ErrorDescription: "client not found",
		})
	case errors.Is(err, service.ErrMemberNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
			Error:            "not_found",
			ErrorDescription: "member not found",
		})
	case errors.Is(err, service.ErrNotManager):
		httpx.WriteJSON(w, http.StatusForbidden, authsdk.ErrorResponse{
			Error:            "forbidden",
			ErrorDescription: "you do not manage this client",
		})
	case errors.Is(err, service.ErrBadClientInput):
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "invalid client configuration",
		})
	default:
		log.Error("client management operation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// HandleCreate handles POST /v1/clients.
func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req authsdk.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "invalid JSON in request body",
		})
		return
	}

	client, secret, err := h.ClientService.Register(r.Context(), callerID, service.RegisterInput{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		LogoURI:     req.LogoURI,
		Callbacks:   req.CallbackURLs,
		Scopes:      req.Scopes,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.CreateClientResponse{
		ClientID:     client.ID,
		ClientSecret: secret,
	})
}

// HandleList handles GET /v1/clients.
func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	clients, err := h.ClientService.List(r.Context(), callerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := authsdk.ListClientsResponse{Clients: make([]authsdk.ClientInfo, 0, len(clients))}
	for _, c := range clients {
		resp.Clients = append(resp.Clients, clientInfo(c))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /v1/clients/{id}.
func (h *ClientsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	client, err := h.ClientService.Get(r.Context(), callerID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clientInfo(client))
}

// HandleUpdate handles PATCH /v1/clients/{id}.
func (h *ClientsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req authsdk.UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "invalid JSON in request body",
		})
		return
	}

	clientID := r.PathValue("id")
	err := h.ClientService.Update(r.Context(), callerID, clientID, service.UpdateOptions{
		Name:        req.Name,
		Description: req.Description,
		LogoURI:     req.LogoURI,
		Callbacks:   req.CallbackURLs,
		Scopes:      req.Scopes,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	client, err := h.ClientService.Get(r.Context(), callerID, clientID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clientInfo(client))
}

// HandleDelete handles DELETE /v1/clients/{id}.
func (h *ClientsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	if err := h.ClientService.Delete(r.Context(), callerID, r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddSecret handles POST /v1/clients/{id}/secrets.
func (h *ClientsHandler) HandleAddSecret(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	secret, fingerprint, err := h.ClientService.AddSecret(r.Context(), callerID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, authsdk.AddSecretResponse{
		ClientSecret: secret,
		Fingerprint:  fingerprint,
	})
}

// HandleListSecrets handles GET /v1/clients/{id}/secrets.
func (h *ClientsHandler) HandleListSecrets(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	secrets, err := h.ClientService.ListSecrets(r.Context(), callerID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := authsdk.ListSecretsResponse{Secrets: make([]authsdk.SecretInfo, 0, len(secrets))}
	for _, s := range secrets {
		resp.Secrets = append(resp.Secrets, authsdk.SecretInfo{
			Fingerprint: s.Fingerprint,
			IssuedBy:    s.IssuedBy,
			CreatedAt:   s.CreatedAt.Unix(),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleDeleteSecret handles DELETE /v1/clients/{id}/secrets/{fingerprint}.
func (h *ClientsHandler) HandleDeleteSecret(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	err := h.ClientService.DeleteSecret(r.Context(), callerID, r.PathValue("id"), r.PathValue("fingerprint"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListManagers handles GET /v1/clients/{id}/managers.
func (h *ClientsHandler) HandleListManagers(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	managers, err := h.ClientService.ListManagers(ctx, callerID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := authsdk.ListManagersResponse{Managers: make([]authsdk.ManagerInfo, 0, len(managers))}
	for _, m := range managers {
		info := authsdk.ManagerInfo{UserID: m.UserID}
		if member, err := h.ResourceService.AuthUser(ctx, m.UserID); err == nil {
			info.Name = member.Name
		}
		resp.Managers = append(resp.Managers, info)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleAddManager handles POST /v1/clients/{id}/managers.
func (h *ClientsHandler) HandleAddManager(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req authsdk.AddManagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "user_id is required",
		})
		return
	}

	if err := h.ClientService.AddManager(r.Context(), callerID, r.PathValue("id"), req.UserID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveManager handles DELETE /v1/clients/{id}/managers/{user_id}.
// The owner row is protected: removing it reports not found.
func (h *ClientsHandler) HandleRemoveManager(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	err := h.ClientService.RemoveManager(r.Context(), callerID, r.PathValue("id"), r.PathValue("user_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func clientInfo(c domain.Client) authsdk.ClientInfo {
	return authsdk.ClientInfo{
		ClientID:     c.ID,
		Name:         c.Name,
		Description:  c.Description,
		LogoURI:      c.LogoURI,
		CallbackURLs: c.CallbackURLs,
		Scopes:       c.Scopes,
		OwnerID:      c.OwnerID,
		CreatedAt:    c.CreatedAt.Unix(),
	}
}
