package activation

import (
	"context"
	"io"
	"log/slog"

	"quickpim/internal/upstream"
)

var (
	_ DirectoryAPI = (*mockDirectoryAPI)(nil)
	_ ResourceAPI  = (*mockResourceAPI)(nil)
)

type mockDirectoryAPI struct {
	createFn func(ctx context.Context, token string, req upstream.DirectoryActivationRequest) (*upstream.GraphScheduleRequest, error)
}

func (m *mockDirectoryAPI) CreateAssignmentScheduleRequest(ctx context.Context, token string, req upstream.DirectoryActivationRequest) (*upstream.GraphScheduleRequest, error) {
	if m.createFn != nil {
		return m.createFn(ctx, token, req)
	}
	panic("unexpected call to mockDirectoryAPI.CreateAssignmentScheduleRequest")
}

type mockResourceAPI struct {
	createFn func(ctx context.Context, token, scope, name string, req upstream.ResourceActivationRequest) (*upstream.ARMScheduleRequest, error)
}

func (m *mockResourceAPI) CreateAssignmentScheduleRequest(ctx context.Context, token, scope, name string, req upstream.ResourceActivationRequest) (*upstream.ARMScheduleRequest, error) {
	if m.createFn != nil {
		return m.createFn(ctx, token, scope, name, req)
	}
	panic("unexpected call to mockResourceAPI.CreateAssignmentScheduleRequest")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
