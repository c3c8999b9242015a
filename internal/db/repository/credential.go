package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quickpim/internal/db/crypto"
	"quickpim/internal/domain"
)

// Compile-time check.
var _ domain.CredentialRepository = (*CredentialRepo)(nil)

// CredentialRepo stores one bearer token per kind, encrypted at rest.
type CredentialRepo struct {
	db  *sql.DB
	enc *crypto.Encryptor
}

// NewCredentialRepo creates a new CredentialRepo.
func NewCredentialRepo(db *sql.DB, enc *crypto.Encryptor) *CredentialRepo {
	return &CredentialRepo{db: db, enc: enc}
}

// Get returns the credential of the given kind, decrypting the token.
func (r *CredentialRepo) Get(ctx context.Context, kind domain.CredentialKind) (*domain.Credential, error) {
	var sealed, source, capturedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT token_enc, source, captured_at FROM credentials WHERE kind = ?`, string(kind),
	).Scan(&sealed, &source, &capturedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound("no %s credential stored", kind)
		}
		return nil, fmt.Errorf("get %s credential: %w", kind, err)
	}

	token, err := r.enc.Open(sealed, string(kind))
	if err != nil {
		return nil, fmt.Errorf("decrypt %s credential: %w", kind, err)
	}
	at, err := parseTime(capturedAt)
	if err != nil {
		return nil, err
	}
	return &domain.Credential{Kind: kind, Token: token, CapturedAt: at, Source: source}, nil
}

// Put stores cred, replacing any credential of the same kind.
func (r *CredentialRepo) Put(ctx context.Context, cred *domain.Credential) error {
	sealed, err := r.enc.Seal(cred.Token, string(cred.Kind))
	if err != nil {
		return fmt.Errorf("encrypt %s credential: %w", cred.Kind, err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO credentials (kind, token_enc, source, captured_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind) DO UPDATE SET
		   token_enc = excluded.token_enc,
		   source = excluded.source,
		   captured_at = excluded.captured_at`,
		string(cred.Kind), sealed, cred.Source, formatTime(cred.CapturedAt),
	)
	if err != nil {
		return fmt.Errorf("put %s credential: %w", cred.Kind, mapDBError(err))
	}
	return nil
}

// Delete removes the credential of the given kind. Removing an absent
// credential is not an error.
func (r *CredentialRepo) Delete(ctx context.Context, kind domain.CredentialKind) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("delete %s credential: %w", kind, err)
	}
	return nil
}

// DeleteAll removes every stored credential.
func (r *CredentialRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
