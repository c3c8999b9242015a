// Package api exposes the PIM helper's request/response message channel as a
// JSON HTTP API.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"quickpim/internal/capture"
	"quickpim/internal/domain"
	"quickpim/internal/service/activation"
)

// RoleReader lists eligible and active roles.
// Implemented by roles.RoleService.
type RoleReader interface {
	FetchEligible(ctx context.Context) (*domain.RoleCatalog, error)
	FetchActive(ctx context.Context) (*domain.ActiveRoleCatalog, error)
	ListRequests(ctx context.Context) ([]domain.ScheduleRequest, error)
}

// TokenManager manages stored credentials.
// Implemented by token.TokenService.
type TokenManager interface {
	Status(ctx context.Context) ([]domain.TokenStatus, error)
	SetManual(ctx context.Context, kind domain.CredentialKind, token string) (*domain.TokenStatus, error)
	Clear(ctx context.Context, kind domain.CredentialKind) error
	ClearAll(ctx context.Context) error
	Fresh(ctx context.Context, kind domain.CredentialKind) (string, error)
	Identity(ctx context.Context) (*domain.Identity, error)
}

// Activator submits activation batches.
// Implemented by activation.ActivationService.
type Activator interface {
	Activate(ctx context.Context, req domain.ActivationRequest, creds activation.Credentials) (*domain.BatchResult, error)
}

// SelectionStore persists role checkbox state.
// Implemented by selection.SelectionService.
type SelectionStore interface {
	List(ctx context.Context) ([]domain.RoleSelection, error)
	Set(ctx context.Context, key string, checked bool) (*domain.RoleSelection, error)
	ClearActivated(ctx context.Context, req domain.ActivationRequest, res *domain.BatchResult) error
}

// Observer accepts observed outbound requests.
// Implemented by capture.Bus.
type Observer interface {
	Observe(ctx context.Context, obs capture.Observation) (bool, error)
}

// HandlerDeps are the services behind the API.
type HandlerDeps struct {
	Roles      RoleReader
	Tokens     TokenManager
	Activation Activator
	Selections SelectionStore
	Capture    Observer
	Logger     *slog.Logger
}

// APIHandler serves the /v1 routes.
type APIHandler struct {
	roles      RoleReader
	tokens     TokenManager
	activation Activator
	selections SelectionStore
	capture    Observer
	now        func() time.Time
	logger     *slog.Logger
}

// NewHandler creates an APIHandler.
func NewHandler(deps HandlerDeps) *APIHandler {
	return &APIHandler{
		roles:      deps.Roles,
		tokens:     deps.Tokens,
		activation: deps.Activation,
		selections: deps.Selections,
		capture:    deps.Capture,
		now:        time.Now,
		logger:     deps.Logger,
	}
}

// Register mounts the API routes on r.
func (h *APIHandler) Register(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.Get("/eligible", h.ListEligibleRoles)
		r.Get("/active", h.ListActiveRoles)
		r.Get("/requests", h.ListScheduleRequests)
	})

	r.Get("/token/status", h.GetTokenStatus)
	r.Put("/token/{kind}", h.SetToken)
	r.Delete("/token", h.ClearTokens)
	r.Delete("/token/{kind}", h.ClearToken)
	r.Get("/identity", h.GetIdentity)

	r.Post("/activations", h.Activate)

	r.Get("/selections", h.ListSelections)
	r.Put("/selections/*", h.SetSelection)

	r.Post("/capture", h.Capture)
}
