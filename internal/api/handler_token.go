package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quickpim/internal/domain"
)

type tokenStatusResponse struct {
	Tokens []domain.TokenStatus `json:"tokens"`
}

type setTokenRequest struct {
	Token string `json:"token"`
}

// GetTokenStatus reports the freshness of both stored credentials.
func (h *APIHandler) GetTokenStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.tokens.Status(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenStatusResponse{Tokens: st})
}

// SetToken stores a manually entered token for the kind in the path.
func (h *APIHandler) SetToken(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseCredentialKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	var body setTokenRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	st, err := h.tokens.SetManual(r.Context(), kind, body.Token)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ClearTokens deletes every stored credential.
func (h *APIHandler) ClearTokens(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.ClearAll(r.Context()); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearToken deletes the credential of the kind in the path.
func (h *APIHandler) ClearToken(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseCredentialKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if err := h.tokens.Clear(r.Context(), kind); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetIdentity returns the user the stored Graph token was issued to.
func (h *APIHandler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	id, err := h.tokens.Identity(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}
