package api

import (
	"context"
	"io"
	"log/slog"

	"quickpim/internal/capture"
	"quickpim/internal/domain"
	"quickpim/internal/service/activation"
)

var (
	_ RoleReader     = (*mockRoles)(nil)
	_ TokenManager   = (*mockTokens)(nil)
	_ Activator      = (*mockActivator)(nil)
	_ SelectionStore = (*mockSelections)(nil)
	_ Observer       = (*mockObserver)(nil)
)

type mockRoles struct {
	fetchEligibleFn func(ctx context.Context) (*domain.RoleCatalog, error)
	fetchActiveFn   func(ctx context.Context) (*domain.ActiveRoleCatalog, error)
	listRequestsFn  func(ctx context.Context) ([]domain.ScheduleRequest, error)
}

func (m *mockRoles) FetchEligible(ctx context.Context) (*domain.RoleCatalog, error) {
	if m.fetchEligibleFn != nil {
		return m.fetchEligibleFn(ctx)
	}
	panic("unexpected call to mockRoles.FetchEligible")
}

func (m *mockRoles) FetchActive(ctx context.Context) (*domain.ActiveRoleCatalog, error) {
	if m.fetchActiveFn != nil {
		return m.fetchActiveFn(ctx)
	}
	panic("unexpected call to mockRoles.FetchActive")
}

func (m *mockRoles) ListRequests(ctx context.Context) ([]domain.ScheduleRequest, error) {
	if m.listRequestsFn != nil {
		return m.listRequestsFn(ctx)
	}
	panic("unexpected call to mockRoles.ListRequests")
}

type mockTokens struct {
	statusFn    func(ctx context.Context) ([]domain.TokenStatus, error)
	setManualFn func(ctx context.Context, kind domain.CredentialKind, token string) (*domain.TokenStatus, error)
	clearFn     func(ctx context.Context, kind domain.CredentialKind) error
	clearAllFn  func(ctx context.Context) error
	freshFn     func(ctx context.Context, kind domain.CredentialKind) (string, error)
	identityFn  func(ctx context.Context) (*domain.Identity, error)
}

func (m *mockTokens) Status(ctx context.Context) ([]domain.TokenStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx)
	}
	panic("unexpected call to mockTokens.Status")
}

func (m *mockTokens) SetManual(ctx context.Context, kind domain.CredentialKind, token string) (*domain.TokenStatus, error) {
	if m.setManualFn != nil {
		return m.setManualFn(ctx, kind, token)
	}
	panic("unexpected call to mockTokens.SetManual")
}

func (m *mockTokens) Clear(ctx context.Context, kind domain.CredentialKind) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, kind)
	}
	panic("unexpected call to mockTokens.Clear")
}

func (m *mockTokens) ClearAll(ctx context.Context) error {
	if m.clearAllFn != nil {
		return m.clearAllFn(ctx)
	}
	panic("unexpected call to mockTokens.ClearAll")
}

func (m *mockTokens) Fresh(ctx context.Context, kind domain.CredentialKind) (string, error) {
	if m.freshFn != nil {
		return m.freshFn(ctx, kind)
	}
	panic("unexpected call to mockTokens.Fresh")
}

func (m *mockTokens) Identity(ctx context.Context) (*domain.Identity, error) {
	if m.identityFn != nil {
		return m.identityFn(ctx)
	}
	panic("unexpected call to mockTokens.Identity")
}

type mockActivator struct {
	activateFn func(ctx context.Context, req domain.ActivationRequest, creds activation.Credentials) (*domain.BatchResult, error)
}

func (m *mockActivator) Activate(ctx context.Context, req domain.ActivationRequest, creds activation.Credentials) (*domain.BatchResult, error) {
	if m.activateFn != nil {
		return m.activateFn(ctx, req, creds)
	}
	panic("unexpected call to mockActivator.Activate")
}

type mockSelections struct {
	listFn           func(ctx context.Context) ([]domain.RoleSelection, error)
	setFn            func(ctx context.Context, key string, checked bool) (*domain.RoleSelection, error)
	clearActivatedFn func(ctx context.Context, req domain.ActivationRequest, res *domain.BatchResult) error
}

func (m *mockSelections) List(ctx context.Context) ([]domain.RoleSelection, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	panic("unexpected call to mockSelections.List")
}

func (m *mockSelections) Set(ctx context.Context, key string, checked bool) (*domain.RoleSelection, error) {
	if m.setFn != nil {
		return m.setFn(ctx, key, checked)
	}
	panic("unexpected call to mockSelections.Set")
}

func (m *mockSelections) ClearActivated(ctx context.Context, req domain.ActivationRequest, res *domain.BatchResult) error {
	if m.clearActivatedFn != nil {
		return m.clearActivatedFn(ctx, req, res)
	}
	panic("unexpected call to mockSelections.ClearActivated")
}

type mockObserver struct {
	observeFn func(ctx context.Context, obs capture.Observation) (bool, error)
}

func (m *mockObserver) Observe(ctx context.Context, obs capture.Observation) (bool, error) {
	if m.observeFn != nil {
		return m.observeFn(ctx, obs)
	}
	panic("unexpected call to mockObserver.Observe")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
