// Package selection keeps the per-role checkbox state of the role picker.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quickpim/internal/domain"
)

const maxKeyLength = 2048

// SelectionService reads and writes role selections.
type SelectionService struct {
	repo   domain.SelectionRepository
	logger *slog.Logger
}

// NewSelectionService creates a SelectionService.
func NewSelectionService(repo domain.SelectionRepository, logger *slog.Logger) *SelectionService {
	return &SelectionService{repo: repo, logger: logger}
}

// List returns every stored selection.
func (s *SelectionService) List(ctx context.Context) ([]domain.RoleSelection, error) {
	sels, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	return sels, nil
}

// Set records whether the role identified by key is checked.
func (s *SelectionService) Set(ctx context.Context, key string, checked bool) (*domain.RoleSelection, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	sel, err := s.repo.Set(ctx, key, checked)
	if err != nil {
		return nil, fmt.Errorf("set selection: %w", err)
	}
	return sel, nil
}

// ClearActivated unchecks every candidate of a fully successful batch.
// Partially failed batches keep their selections so failures can be retried.
func (s *SelectionService) ClearActivated(ctx context.Context, req domain.ActivationRequest, res *domain.BatchResult) error {
	if res == nil || !res.Success || len(req.Candidates) == 0 {
		return nil
	}
	keys := make([]string, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		keys = append(keys, c.Key())
	}
	if err := s.repo.Uncheck(ctx, keys); err != nil {
		return fmt.Errorf("clear activated selections: %w", err)
	}
	s.logger.Debug("selections cleared", "count", len(keys))
	return nil
}

// ValidateKey checks that key looks like a RoleCandidate.Key value.
func ValidateKey(key string) error {
	if len(key) > maxKeyLength {
		return domain.ErrValidation(domain.ReasonInvalidCandidate, "selection key exceeds %d characters", maxKeyLength)
	}
	if !strings.HasPrefix(key, "dir:") && !strings.HasPrefix(key, "arm:") {
		return domain.ErrValidation(domain.ReasonInvalidCandidate, "selection key must start with \"dir:\" or \"arm:\"")
	}
	if len(strings.SplitN(key, ":", 3)) != 3 {
		return domain.ErrValidation(domain.ReasonInvalidCandidate, "selection key must have the form <type>:<roleDefinitionId>:<scope>")
	}
	return nil
}
