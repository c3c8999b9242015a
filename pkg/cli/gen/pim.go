package gen

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"quickpim/internal/capture"
	"quickpim/internal/domain"
)

// ActiveRole mirrors the daemon's decorated active-role entry.
type ActiveRole struct {
	domain.ActiveRole
	ScopeLabel       string   `json:"scopeLabel,omitempty"`
	RemainingSeconds *int64   `json:"remainingSeconds,omitempty"`
	Remaining        string   `json:"remaining,omitempty"`
	RemainingPercent *float64 `json:"remainingPercent,omitempty"`
	ExpiringSoon     bool     `json:"expiringSoon"`
}

// ActiveRoles is the response of GET /v1/roles/active.
type ActiveRoles struct {
	DirectoryRoles     []ActiveRole        `json:"activeDirectoryRoles"`
	AzureResourceRoles []ActiveRole        `json:"activeAzureResourceRoles"`
	Errors             []domain.FetchError `json:"errors"`
}

// EligibleRoles returns the catalog of activatable roles.
func (c *Client) EligibleRoles(ctx context.Context) (*domain.RoleCatalog, error) {
	var out domain.RoleCatalog
	if err := c.call(ctx, http.MethodGet, "/roles/eligible", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveRoles returns the roles currently in effect.
func (c *Client) ActiveRoles(ctx context.Context) (*ActiveRoles, error) {
	var out ActiveRoles
	if err := c.call(ctx, http.MethodGet, "/roles/active", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScheduleRequests returns recent directory activation requests.
func (c *Client) ScheduleRequests(ctx context.Context) ([]domain.ScheduleRequest, error) {
	var out struct {
		Requests []domain.ScheduleRequest `json:"requests"`
	}
	if err := c.call(ctx, http.MethodGet, "/roles/requests", nil, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

// TokenStatus reports both stored credentials.
func (c *Client) TokenStatus(ctx context.Context) ([]domain.TokenStatus, error) {
	var out struct {
		Tokens []domain.TokenStatus `json:"tokens"`
	}
	if err := c.call(ctx, http.MethodGet, "/token/status", nil, &out); err != nil {
		return nil, err
	}
	return out.Tokens, nil
}

// SetToken stores a manually entered token.
func (c *Client) SetToken(ctx context.Context, kind domain.CredentialKind, token string) (*domain.TokenStatus, error) {
	var out domain.TokenStatus
	body := map[string]string{"token": token}
	if err := c.call(ctx, http.MethodPut, "/token/"+string(kind), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearToken deletes one credential, or all of them when kind is empty.
func (c *Client) ClearToken(ctx context.Context, kind domain.CredentialKind) error {
	path := "/token"
	if kind != "" {
		path += "/" + string(kind)
	}
	return c.call(ctx, http.MethodDelete, path, nil, nil)
}

// Identity returns the user behind the stored Graph token.
func (c *Client) Identity(ctx context.Context) (*domain.Identity, error) {
	var out domain.Identity
	if err := c.call(ctx, http.MethodGet, "/identity", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Activate submits an activation batch.
func (c *Client) Activate(ctx context.Context, req domain.ActivationRequest) (*domain.BatchResult, error) {
	var out domain.BatchResult
	if err := c.call(ctx, http.MethodPost, "/activations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Selections returns the persisted checkbox state.
func (c *Client) Selections(ctx context.Context) ([]domain.RoleSelection, error) {
	var out struct {
		Selections []domain.RoleSelection `json:"selections"`
	}
	if err := c.call(ctx, http.MethodGet, "/selections", nil, &out); err != nil {
		return nil, err
	}
	return out.Selections, nil
}

// SetSelection records the checkbox state of one role key.
func (c *Client) SetSelection(ctx context.Context, key string, checked bool) (*domain.RoleSelection, error) {
	var out domain.RoleSelection
	body := map[string]bool{"checked": checked}
	if err := c.call(ctx, http.MethodPut, "/selections/"+escapeKey(key), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Capture forwards one observed request to the daemon.
func (c *Client) Capture(ctx context.Context, obs capture.Observation) (bool, error) {
	var out struct {
		Captured bool `json:"captured"`
	}
	if err := c.call(ctx, http.MethodPost, "/capture", obs, &out); err != nil {
		return false, err
	}
	return out.Captured, nil
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return err
	}
	if err := CheckError(resp); err != nil {
		return err
	}
	_, err = ReadBody(resp)
	return err
}

// escapeKey escapes each slash-separated segment of a selection key.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
