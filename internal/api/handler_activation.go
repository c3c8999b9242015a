package api

import (
	"fmt"
	"net/http"

	"quickpim/internal/domain"
	"quickpim/internal/service/activation"
)

// Activate submits a batch of self-activation requests. Per-role failures are
// reported in the body with status 200; only preconditions yield errors.
func (h *APIHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req domain.ActivationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	creds, err := h.credentials(r, req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	res, err := h.activation.Activate(r.Context(), req, creds)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	if err := h.selections.ClearActivated(r.Context(), req, res); err != nil {
		h.logger.Warn("clear selections after activation", "error", err)
	}
	writeJSON(w, http.StatusOK, res)
}

// credentials loads the fresh tokens the batch needs. Missing tokens are left
// empty for the orchestrator's preflight to report.
func (h *APIHandler) credentials(r *http.Request, req domain.ActivationRequest) (activation.Credentials, error) {
	var creds activation.Credentials
	var err error
	if req.HasRoleType(domain.RoleTypeDirectory) {
		if creds.Directory, err = h.tokens.Fresh(r.Context(), domain.CredentialKindGraph); err != nil {
			return creds, fmt.Errorf("load graph credential: %w", err)
		}
	}
	if req.HasRoleType(domain.RoleTypeAzureResource) {
		if creds.Resource, err = h.tokens.Fresh(r.Context(), domain.CredentialKindARM); err != nil {
			return creds, fmt.Errorf("load arm credential: %w", err)
		}
	}
	return creds, nil
}
