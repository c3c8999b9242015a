package domain

import (
	"strings"
	"time"
)

// CredentialKind identifies which upstream API a captured token belongs to.
type CredentialKind string

// Credential kinds. Graph tokens serve directory roles, ARM tokens serve
// Azure resource roles.
const (
	CredentialKindGraph CredentialKind = "graph"
	CredentialKindARM   CredentialKind = "arm"
)

// AllCredentialKinds lists every supported credential kind in display order.
var AllCredentialKinds = []CredentialKind{CredentialKindGraph, CredentialKindARM}

// DefaultTokenMaxAge is how long a captured token is considered usable.
const DefaultTokenMaxAge = 45 * time.Minute

// MinManualTokenLength is the shortest token accepted from manual entry.
const MinManualTokenLength = 50

// SourceManualEntry marks credentials that were pasted in rather than captured.
const SourceManualEntry = "manual-entry"

// ParseCredentialKind validates a credential kind string.
func ParseCredentialKind(s string) (CredentialKind, error) {
	switch CredentialKind(strings.ToLower(strings.TrimSpace(s))) {
	case CredentialKindGraph:
		return CredentialKindGraph, nil
	case CredentialKindARM:
		return CredentialKindARM, nil
	default:
		return "", ErrValidation(ReasonUnknownCredentialKind, "unknown credential kind %q: use 'graph' or 'arm'", s)
	}
}

// Credential is an opaque bearer token with its capture metadata.
type Credential struct {
	Kind       CredentialKind
	Token      string
	CapturedAt time.Time
	Source     string
}

// Age returns how long ago the credential was captured.
func (c *Credential) Age(now time.Time) time.Duration {
	return now.Sub(c.CapturedAt)
}

// Usable reports whether the credential is still within maxAge. The bound is
// inclusive: a token exactly maxAge old is still usable.
func (c *Credential) Usable(now time.Time, maxAge time.Duration) bool {
	if c == nil || c.Token == "" {
		return false
	}
	return c.Age(now) <= maxAge
}

// Identity is the caller recovered from a token's claims. It is never persisted.
type Identity struct {
	PrincipalID       string `json:"principalId"`
	DisplayName       string `json:"displayName,omitempty"`
	Username          string `json:"username,omitempty"`
	PreferredUsername string `json:"preferredUsername,omitempty"`
}
