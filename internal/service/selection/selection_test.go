package selection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickpim/internal/domain"
)

var _ domain.SelectionRepository = (*mockSelectionRepo)(nil)

type mockSelectionRepo struct {
	listFn    func(ctx context.Context) ([]domain.RoleSelection, error)
	setFn     func(ctx context.Context, key string, checked bool) (*domain.RoleSelection, error)
	uncheckFn func(ctx context.Context, keys []string) error
}

func (m *mockSelectionRepo) List(ctx context.Context) ([]domain.RoleSelection, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	panic("unexpected call to mockSelectionRepo.List")
}

func (m *mockSelectionRepo) Set(ctx context.Context, key string, checked bool) (*domain.RoleSelection, error) {
	if m.setFn != nil {
		return m.setFn(ctx, key, checked)
	}
	panic("unexpected call to mockSelectionRepo.Set")
}

func (m *mockSelectionRepo) Uncheck(ctx context.Context, keys []string) error {
	if m.uncheckFn != nil {
		return m.uncheckFn(ctx, keys)
	}
	panic("unexpected call to mockSelectionRepo.Uncheck")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSelectionService_Set(t *testing.T) {
	repo := &mockSelectionRepo{setFn: func(_ context.Context, key string, checked bool) (*domain.RoleSelection, error) {
		return &domain.RoleSelection{Key: key, Checked: checked}, nil
	}}
	svc := NewSelectionService(repo, discardLogger())

	sel, err := svc.Set(context.Background(), "dir:def-1:/", true)
	require.NoError(t, err)
	assert.True(t, sel.Checked)
}

func TestSelectionService_SetNormalizesKey(t *testing.T) {
	var stored string
	repo := &mockSelectionRepo{setFn: func(_ context.Context, key string, checked bool) (*domain.RoleSelection, error) {
		stored = key
		return &domain.RoleSelection{Key: key, Checked: checked}, nil
	}}
	svc := NewSelectionService(repo, discardLogger())

	sel, err := svc.Set(context.Background(), "  ARM:Def-1:/Subscriptions/S1 ", true)
	require.NoError(t, err)
	assert.Equal(t, "arm:def-1:/subscriptions/s1", stored)
	assert.Equal(t, stored, sel.Key)
}

func TestSelectionService_SetRejectsBadKey(t *testing.T) {
	svc := NewSelectionService(&mockSelectionRepo{}, discardLogger())

	for _, key := range []string{"", "group:x:/", "dir:only-two", string(make([]byte, maxKeyLength+1))} {
		_, err := svc.Set(context.Background(), key, true)
		var valErr *domain.ValidationError
		require.ErrorAs(t, err, &valErr, "key %q", key)
	}
}

func TestSelectionService_ListError(t *testing.T) {
	repo := &mockSelectionRepo{listFn: func(context.Context) ([]domain.RoleSelection, error) {
		return nil, errors.New("db closed")
	}}
	svc := NewSelectionService(repo, discardLogger())

	_, err := svc.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list selections")
}

func TestSelectionService_ClearActivated(t *testing.T) {
	dir := domain.NewDirectoryCandidate(domain.DirectoryRole{RoleDefinitionID: "D1", PrincipalID: "p"})
	res := domain.NewResourceCandidate(domain.ResourceRole{RoleDefinitionID: "R1", PrincipalID: "p", Scope: "/subscriptions/S"})
	req := domain.ActivationRequest{Candidates: []domain.RoleCandidate{dir, res}}

	var got []string
	repo := &mockSelectionRepo{uncheckFn: func(_ context.Context, keys []string) error {
		got = keys
		return nil
	}}
	svc := NewSelectionService(repo, discardLogger())

	require.NoError(t, svc.ClearActivated(context.Background(), req, &domain.BatchResult{Success: true}))
	assert.Equal(t, []string{"dir:d1:/", "arm:r1:/subscriptions/s"}, got)
}

func TestSelectionService_ClearActivatedKeepsPartialBatch(t *testing.T) {
	// Uncheck must not be called
	svc := NewSelectionService(&mockSelectionRepo{}, discardLogger())
	req := domain.ActivationRequest{Candidates: []domain.RoleCandidate{
		domain.NewDirectoryCandidate(domain.DirectoryRole{RoleDefinitionID: "D1", PrincipalID: "p"}),
	}}

	require.NoError(t, svc.ClearActivated(context.Background(), req, &domain.BatchResult{Success: false}))
	require.NoError(t, svc.ClearActivated(context.Background(), req, nil))
}
