package roles

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"quickpim/internal/domain"
	"quickpim/internal/upstream"
)

var (
	_ GraphAPI          = (*mockGraph)(nil)
	_ ARMAPI            = (*mockARM)(nil)
	_ CredentialSource  = (*mockCreds)(nil)
	_ DefinitionFetcher = (*mockDefinitions)(nil)
)

type mockGraph struct {
	listEligibilitySchedulesFn        func(ctx context.Context, token, principalID string) ([]upstream.GraphRoleSchedule, error)
	listAssignmentScheduleInstancesFn func(ctx context.Context, token, principalID string) ([]upstream.GraphRoleSchedule, error)
	listMyScheduleRequestsFn          func(ctx context.Context, token string) ([]upstream.GraphScheduleRequest, error)
}

func (m *mockGraph) ListEligibilitySchedules(ctx context.Context, token, principalID string) ([]upstream.GraphRoleSchedule, error) {
	if m.listEligibilitySchedulesFn != nil {
		return m.listEligibilitySchedulesFn(ctx, token, principalID)
	}
	panic("unexpected call to mockGraph.ListEligibilitySchedules")
}

func (m *mockGraph) ListAssignmentScheduleInstances(ctx context.Context, token, principalID string) ([]upstream.GraphRoleSchedule, error) {
	if m.listAssignmentScheduleInstancesFn != nil {
		return m.listAssignmentScheduleInstancesFn(ctx, token, principalID)
	}
	panic("unexpected call to mockGraph.ListAssignmentScheduleInstances")
}

func (m *mockGraph) ListMyScheduleRequests(ctx context.Context, token string) ([]upstream.GraphScheduleRequest, error) {
	if m.listMyScheduleRequestsFn != nil {
		return m.listMyScheduleRequestsFn(ctx, token)
	}
	panic("unexpected call to mockGraph.ListMyScheduleRequests")
}

type mockARM struct {
	listEligibilityScheduleInstancesFn func(ctx context.Context, token string) ([]upstream.ARMScheduleInstance, error)
	listAssignmentScheduleInstancesFn  func(ctx context.Context, token string) ([]upstream.ARMScheduleInstance, error)
	listSubscriptionsFn                func(ctx context.Context, token string) ([]upstream.ARMSubscription, error)
}

func (m *mockARM) ListEligibilityScheduleInstances(ctx context.Context, token string) ([]upstream.ARMScheduleInstance, error) {
	if m.listEligibilityScheduleInstancesFn != nil {
		return m.listEligibilityScheduleInstancesFn(ctx, token)
	}
	panic("unexpected call to mockARM.ListEligibilityScheduleInstances")
}

func (m *mockARM) ListAssignmentScheduleInstances(ctx context.Context, token string) ([]upstream.ARMScheduleInstance, error) {
	if m.listAssignmentScheduleInstancesFn != nil {
		return m.listAssignmentScheduleInstancesFn(ctx, token)
	}
	panic("unexpected call to mockARM.ListAssignmentScheduleInstances")
}

func (m *mockARM) ListSubscriptions(ctx context.Context, token string) ([]upstream.ARMSubscription, error) {
	if m.listSubscriptionsFn != nil {
		return m.listSubscriptionsFn(ctx, token)
	}
	panic("unexpected call to mockARM.ListSubscriptions")
}

type mockCreds struct {
	usableFn func(ctx context.Context, kind domain.CredentialKind) (string, error)
	freshFn  func(ctx context.Context, kind domain.CredentialKind) (string, error)
}

func (m *mockCreds) Usable(ctx context.Context, kind domain.CredentialKind) (string, error) {
	if m.usableFn != nil {
		return m.usableFn(ctx, kind)
	}
	panic("unexpected call to mockCreds.Usable")
}

func (m *mockCreds) Fresh(ctx context.Context, kind domain.CredentialKind) (string, error) {
	if m.freshFn != nil {
		return m.freshFn(ctx, kind)
	}
	panic("unexpected call to mockCreds.Fresh")
}

// staticCreds serves a fixed token per kind; an empty token is absent.
func staticCreds(graph, arm string) *mockCreds {
	tokens := map[domain.CredentialKind]string{domain.CredentialKindGraph: graph, domain.CredentialKindARM: arm}
	return &mockCreds{
		usableFn: func(_ context.Context, kind domain.CredentialKind) (string, error) {
			if tokens[kind] == "" {
				return "", domain.ErrCredential(domain.ReasonNoCredential, "no %s token found", kind)
			}
			return tokens[kind], nil
		},
		freshFn: func(_ context.Context, kind domain.CredentialKind) (string, error) {
			return tokens[kind], nil
		},
	}
}

type mockDefinitions struct {
	listRoleDefinitionsFn func(ctx context.Context, token string) ([]upstream.GraphRoleDefinition, error)
}

func (m *mockDefinitions) ListRoleDefinitions(ctx context.Context, token string) ([]upstream.GraphRoleDefinition, error) {
	if m.listRoleDefinitionsFn != nil {
		return m.listRoleDefinitionsFn(ctx, token)
	}
	panic("unexpected call to mockDefinitions.ListRoleDefinitions")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tokenFor builds an unsigned three-segment token carrying oid.
func tokenFor(t *testing.T, oid string) string {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"oid": oid})
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." + enc.EncodeToString(payload) + ".sig"
}
