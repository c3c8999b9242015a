// Package capture turns observed outbound requests into captured credentials
// and fans them out to subscribers.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"quickpim/internal/domain"
)

// DefaultHosts maps the observed API hosts to the credential kind they carry.
var DefaultHosts = map[string]domain.CredentialKind{
	"graph.microsoft.com":  domain.CredentialKindGraph,
	"management.azure.com": domain.CredentialKindARM,
}

const bearerPrefix = "Bearer "

// Header is one observed request header.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Observation is an outbound request seen by the browser-side observer.
type Observation struct {
	URL     string   `json:"url"`
	Headers []Header `json:"headers"`
}

// Captured is a bearer token extracted from an observation.
type Captured struct {
	Kind   domain.CredentialKind
	Token  string
	Source string
	At     time.Time
}

// Handler consumes captured credentials.
type Handler func(ctx context.Context, c Captured) error

// Bus extracts credentials from observations and delivers them to every
// subscriber in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   []Handler
	hosts  map[string]domain.CredentialKind
	now    func() time.Time
	logger *slog.Logger
}

// NewBus creates a Bus accepting the given hosts (nil means DefaultHosts).
func NewBus(hosts map[string]domain.CredentialKind, logger *slog.Logger) *Bus {
	if hosts == nil {
		hosts = DefaultHosts
	}
	normalized := make(map[string]domain.CredentialKind, len(hosts))
	for h, k := range hosts {
		normalized[strings.ToLower(h)] = k
	}
	return &Bus{hosts: normalized, now: time.Now, logger: logger}
}

// Subscribe registers h for all future captures.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, h)
}

// Observe extracts a credential from obs and publishes it. It reports false
// when the observation carries nothing to capture. Subscriber errors are
// returned after every subscriber has run.
func (b *Bus) Observe(ctx context.Context, obs Observation) (bool, error) {
	c, ok := b.Extract(obs)
	if !ok {
		return false, nil
	}

	b.mu.RLock()
	subs := append([]Handler(nil), b.subs...)
	b.mu.RUnlock()

	var firstErr error
	for _, h := range subs {
		if err := h(ctx, c); err != nil {
			b.logger.Error("capture subscriber failed", "kind", c.Kind, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("deliver %s capture: %w", c.Kind, err)
			}
		}
	}
	b.logger.Info("credential captured", "kind", c.Kind, "host", hostOf(c.Source))
	return true, firstErr
}

// Extract returns the bearer token of obs when its host is accepted and it
// carries an Authorization header with the Bearer scheme.
func (b *Bus) Extract(obs Observation) (Captured, bool) {
	kind, ok := b.kindFor(obs.URL)
	if !ok {
		return Captured{}, false
	}
	for _, h := range obs.Headers {
		if !strings.EqualFold(h.Name, "Authorization") {
			continue
		}
		if !strings.HasPrefix(h.Value, bearerPrefix) {
			continue
		}
		token := strings.TrimSpace(strings.TrimPrefix(h.Value, bearerPrefix))
		if token == "" {
			continue
		}
		return Captured{Kind: kind, Token: token, Source: obs.URL, At: b.now()}, true
	}
	return Captured{}, false
}

func (b *Bus) kindFor(rawURL string) (domain.CredentialKind, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" {
		return "", false
	}
	kind, ok := b.hosts[strings.ToLower(u.Hostname())]
	return kind, ok
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
