package domain

import "context"

// CredentialRepository persists captured tokens, one per kind.
// Implemented by repository.CredentialRepo.
type CredentialRepository interface {
	// Get returns the stored credential or a NotFoundError.
	Get(ctx context.Context, kind CredentialKind) (*Credential, error)
	// Put overwrites the credential of the same kind.
	Put(ctx context.Context, cred *Credential) error
	Delete(ctx context.Context, kind CredentialKind) error
	DeleteAll(ctx context.Context) error
}

// SelectionRepository persists per-role checkbox state.
// Implemented by repository.SelectionRepo.
type SelectionRepository interface {
	List(ctx context.Context) ([]RoleSelection, error)
	Set(ctx context.Context, key string, checked bool) (*RoleSelection, error)
	// Uncheck clears the given keys; unknown keys are ignored.
	Uncheck(ctx context.Context, keys []string) error
}
