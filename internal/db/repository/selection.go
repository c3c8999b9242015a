package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"quickpim/internal/domain"
)

// Compile-time check.
var _ domain.SelectionRepository = (*SelectionRepo)(nil)

// SelectionRepo persists per-role checkbox state.
type SelectionRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSelectionRepo creates a new SelectionRepo.
func NewSelectionRepo(db *sql.DB) *SelectionRepo {
	return &SelectionRepo{db: db, now: time.Now}
}

// List returns all stored selections ordered by key.
func (r *SelectionRepo) List(ctx context.Context) ([]domain.RoleSelection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role_key, checked, updated_at FROM role_selections ORDER BY role_key`)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.RoleSelection{}
	for rows.Next() {
		var (
			sel       domain.RoleSelection
			checked   int64
			updatedAt string
		)
		if err := rows.Scan(&sel.Key, &checked, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		sel.Checked = checked != 0
		if sel.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	return out, nil
}

// Set upserts the checkbox state of one role.
func (r *SelectionRepo) Set(ctx context.Context, key string, checked bool) (*domain.RoleSelection, error) {
	now := r.now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_selections (role_key, checked, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(role_key) DO UPDATE SET checked = excluded.checked, updated_at = excluded.updated_at`,
		key, boolToInt(checked), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("set selection: %w", mapDBError(err))
	}
	return &domain.RoleSelection{Key: key, Checked: checked, UpdatedAt: now}, nil
}

// Uncheck clears the given keys. Unknown keys are ignored.
func (r *SelectionRepo) Uncheck(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, formatTime(r.now()))
	for _, k := range keys {
		args = append(args, k)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE role_selections SET checked = 0, updated_at = ? WHERE role_key IN (`+placeholders+`)`,
		args...,
	); err != nil {
		return fmt.Errorf("uncheck selections: %w", err)
	}
	return nil
}
