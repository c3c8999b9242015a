package api

import (
	"net/http"
	"time"

	"quickpim/internal/domain"
)

// activeRoleView decorates an active role with countdown data. The remaining
// fields are absent for permanent assignments.
type activeRoleView struct {
	domain.ActiveRole
	ScopeLabel       string   `json:"scopeLabel,omitempty"`
	RemainingSeconds *int64   `json:"remainingSeconds,omitempty"`
	Remaining        string   `json:"remaining,omitempty"`
	RemainingPercent *float64 `json:"remainingPercent,omitempty"`
	ExpiringSoon     bool     `json:"expiringSoon"`
}

type activeRolesResponse struct {
	DirectoryRoles     []activeRoleView    `json:"activeDirectoryRoles"`
	AzureResourceRoles []activeRoleView    `json:"activeAzureResourceRoles"`
	Errors             []domain.FetchError `json:"errors"`
}

type scheduleRequestsResponse struct {
	Requests []domain.ScheduleRequest `json:"requests"`
}

// ListEligibleRoles returns the caller's eligible directory and resource roles.
func (h *APIHandler) ListEligibleRoles(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.roles.FetchEligible(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

// ListActiveRoles returns the caller's active roles with time remaining.
func (h *APIHandler) ListActiveRoles(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.roles.FetchActive(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	now := h.now()
	writeJSON(w, http.StatusOK, activeRolesResponse{
		DirectoryRoles:     activeViews(catalog.DirectoryRoles, now),
		AzureResourceRoles: activeViews(catalog.AzureResourceRoles, now),
		Errors:             catalog.Errors,
	})
}

// ListScheduleRequests returns the caller's recent activation requests.
func (h *APIHandler) ListScheduleRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.roles.ListRequests(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleRequestsResponse{Requests: reqs})
}

func activeViews(roles []domain.ActiveRole, now time.Time) []activeRoleView {
	out := make([]activeRoleView, 0, len(roles))
	for _, role := range roles {
		v := activeRoleView{ActiveRole: role}
		if role.Resource != nil {
			v.ScopeLabel = domain.ScopeLabel(role.Resource.Scope)
		}
		if role.EndDateTime != nil {
			remaining := domain.TimeRemaining(*role.EndDateTime, now)
			secs := int64(remaining / time.Second)
			pct := domain.RemainingPercent(remaining)
			v.RemainingSeconds = &secs
			v.Remaining = domain.FormatRemaining(remaining)
			v.RemainingPercent = &pct
			v.ExpiringSoon = domain.ExpiringSoon(*role.EndDateTime, now)
		}
		out = append(out, v)
	}
	return out
}
