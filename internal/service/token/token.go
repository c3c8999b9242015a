// Package token manages the lifecycle of captured bearer tokens.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quickpim/internal/capture"
	"quickpim/internal/domain"
	"quickpim/internal/jwtclaims"
)

// TokenService stores, inspects and hands out captured credentials.
type TokenService struct {
	repo   domain.CredentialRepository
	maxAge time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewTokenService creates a TokenService. A non-positive maxAge uses the
// 45 minute default.
func NewTokenService(repo domain.CredentialRepository, maxAge time.Duration, logger *slog.Logger) *TokenService {
	if maxAge <= 0 {
		maxAge = domain.DefaultTokenMaxAge
	}
	return &TokenService{repo: repo, maxAge: maxAge, now: time.Now, logger: logger}
}

// MaxAge returns the freshness window applied to stored credentials.
func (s *TokenService) MaxAge() time.Duration { return s.maxAge }

// Status reports the freshness of every credential kind.
func (s *TokenService) Status(ctx context.Context) ([]domain.TokenStatus, error) {
	now := s.now()
	out := make([]domain.TokenStatus, 0, len(domain.AllCredentialKinds))
	for _, kind := range domain.AllCredentialKinds {
		cred, err := s.lookup(ctx, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.EvaluateTokenStatus(kind, cred, now, s.maxAge))
	}
	return out, nil
}

// SetManual stores a pasted token. Tokens shorter than 50 characters after
// trimming are rejected.
func (s *TokenService) SetManual(ctx context.Context, kind domain.CredentialKind, token string) (*domain.TokenStatus, error) {
	token = strings.TrimSpace(token)
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if len(token) < domain.MinManualTokenLength {
		return nil, domain.ErrValidation(domain.ReasonInvalidCredential,
			"invalid token: must be at least %d characters", domain.MinManualTokenLength)
	}

	cred := &domain.Credential{Kind: kind, Token: token, CapturedAt: s.now(), Source: domain.SourceManualEntry}
	if err := s.repo.Put(ctx, cred); err != nil {
		return nil, fmt.Errorf("store %s token: %w", kind, err)
	}
	s.logger.Info("token set manually", "kind", kind)

	st := domain.EvaluateTokenStatus(kind, cred, cred.CapturedAt, s.maxAge)
	return &st, nil
}

// HandleCapture stores a passively captured token. It is subscribed to the
// capture bus.
func (s *TokenService) HandleCapture(ctx context.Context, c capture.Captured) error {
	at := c.At
	if at.IsZero() {
		at = s.now()
	}
	if err := s.repo.Put(ctx, &domain.Credential{Kind: c.Kind, Token: c.Token, CapturedAt: at, Source: c.Source}); err != nil {
		return fmt.Errorf("store captured %s token: %w", c.Kind, err)
	}
	return nil
}

// Clear removes the credential of one kind.
func (s *TokenService) Clear(ctx context.Context, kind domain.CredentialKind) error {
	if err := s.repo.Delete(ctx, kind); err != nil {
		return fmt.Errorf("clear %s token: %w", kind, err)
	}
	s.logger.Info("token cleared", "kind", kind)
	return nil
}

// ClearAll removes every stored credential.
func (s *TokenService) ClearAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	s.logger.Info("all tokens cleared")
	return nil
}

// Usable returns the token of kind when a fresh one is stored, otherwise a
// CredentialError explaining why not.
func (s *TokenService) Usable(ctx context.Context, kind domain.CredentialKind) (string, error) {
	cred, err := s.lookup(ctx, kind)
	if err != nil {
		return "", err
	}
	if cred == nil || cred.Token == "" {
		return "", domain.ErrCredential(domain.ReasonNoCredential,
			"no %s token found: open the Azure portal to capture one or set it manually", kindLabel(kind))
	}
	if !cred.Usable(s.now(), s.maxAge) {
		return "", domain.ErrCredential(domain.ReasonCredentialExpired,
			"%s token may have expired: refresh the Azure portal to capture a new one", kindLabel(kind))
	}
	return cred.Token, nil
}

// Fresh returns the token of kind, or "" when it is absent or expired.
// Only store failures are errors.
func (s *TokenService) Fresh(ctx context.Context, kind domain.CredentialKind) (string, error) {
	tok, err := s.Usable(ctx, kind)
	var credErr *domain.CredentialError
	if errors.As(err, &credErr) {
		return "", nil
	}
	return tok, err
}

// Identity decodes the caller from the stored Graph token. The token's
// age is not checked.
func (s *TokenService) Identity(ctx context.Context) (*domain.Identity, error) {
	cred, err := s.lookup(ctx, domain.CredentialKindGraph)
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.Token == "" {
		return nil, domain.ErrCredential(domain.ReasonNoCredential, "no %s token found", kindLabel(domain.CredentialKindGraph))
	}
	id, ok := jwtclaims.UserInfo(cred.Token)
	if !ok {
		return nil, domain.ErrCredential(domain.ReasonInvalidCredential, "could not decode token claims")
	}
	return id, nil
}

// lookup returns the stored credential or nil when none exists.
func (s *TokenService) lookup(ctx context.Context, kind domain.CredentialKind) (*domain.Credential, error) {
	cred, err := s.repo.Get(ctx, kind)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s token: %w", kind, err)
	}
	return cred, nil
}

func kindLabel(kind domain.CredentialKind) string {
	switch kind {
	case domain.CredentialKindGraph:
		return "Microsoft Graph"
	case domain.CredentialKindARM:
		return "Azure Resource Manager"
	default:
		return string(kind)
	}
}
