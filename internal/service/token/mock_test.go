package token

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"quickpim/internal/domain"
)

var _ domain.CredentialRepository = (*mockCredentialRepo)(nil)

type mockCredentialRepo struct {
	getFn       func(ctx context.Context, kind domain.CredentialKind) (*domain.Credential, error)
	putFn       func(ctx context.Context, cred *domain.Credential) error
	deleteFn    func(ctx context.Context, kind domain.CredentialKind) error
	deleteAllFn func(ctx context.Context) error
}

func (m *mockCredentialRepo) Get(ctx context.Context, kind domain.CredentialKind) (*domain.Credential, error) {
	if m.getFn != nil {
		return m.getFn(ctx, kind)
	}
	panic("unexpected call to mockCredentialRepo.Get")
}

func (m *mockCredentialRepo) Put(ctx context.Context, cred *domain.Credential) error {
	if m.putFn != nil {
		return m.putFn(ctx, cred)
	}
	panic("unexpected call to mockCredentialRepo.Put")
}

func (m *mockCredentialRepo) Delete(ctx context.Context, kind domain.CredentialKind) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, kind)
	}
	panic("unexpected call to mockCredentialRepo.Delete")
}

func (m *mockCredentialRepo) DeleteAll(ctx context.Context) error {
	if m.deleteAllFn != nil {
		return m.deleteAllFn(ctx)
	}
	panic("unexpected call to mockCredentialRepo.DeleteAll")
}

// memoryCredentialRepo wires every mock function to an in-memory map.
func memoryCredentialRepo() (*mockCredentialRepo, map[domain.CredentialKind]*domain.Credential) {
	var mu sync.Mutex
	store := map[domain.CredentialKind]*domain.Credential{}
	return &mockCredentialRepo{
		getFn: func(_ context.Context, kind domain.CredentialKind) (*domain.Credential, error) {
			mu.Lock()
			defer mu.Unlock()
			c, ok := store[kind]
			if !ok {
				return nil, domain.ErrNotFound("no %s credential stored", kind)
			}
			cp := *c
			return &cp, nil
		},
		putFn: func(_ context.Context, cred *domain.Credential) error {
			mu.Lock()
			defer mu.Unlock()
			cp := *cred
			store[cred.Kind] = &cp
			return nil
		},
		deleteFn: func(_ context.Context, kind domain.CredentialKind) error {
			mu.Lock()
			defer mu.Unlock()
			delete(store, kind)
			return nil
		},
		deleteAllFn: func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			for k := range store {
				delete(store, k)
			}
			return nil
		},
	}, store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
