package roles

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"quickpim/internal/upstream"
)

// DefaultDefinitionTTL is how long a fetched definition list stays fresh.
const DefaultDefinitionTTL = time.Hour

// DefinitionFetcher lists directory role definitions.
// Implemented by upstream.GraphClient.
type DefinitionFetcher interface {
	ListRoleDefinitions(ctx context.Context, token string) ([]upstream.GraphRoleDefinition, error)
}

// DefinitionCache maps directory role definition ids to display names. The
// whole list is refetched when it is older than the TTL or lacks a requested
// id. The mutex is held across check, fetch and store so concurrent callers
// never refresh twice.
type DefinitionCache struct {
	fetcher DefinitionFetcher
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu        sync.Mutex
	names     map[string]string
	fetchedAt time.Time
}

// NewDefinitionCache creates an empty cache. A non-positive ttl uses one hour.
func NewDefinitionCache(fetcher DefinitionFetcher, ttl time.Duration, logger *slog.Logger) *DefinitionCache {
	if ttl <= 0 {
		ttl = DefaultDefinitionTTL
	}
	return &DefinitionCache{fetcher: fetcher, ttl: ttl, now: time.Now, logger: logger}
}

// Names returns the display names for ids. Ids the tenant does not define are
// absent from the result. A fetch failure yields an empty map and leaves the
// previous list in place.
func (c *DefinitionCache) Names(ctx context.Context, token string, ids []string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fresh() || !c.covers(ids) {
		if err := c.refresh(ctx, token); err != nil {
			c.logger.Warn("role definition fetch failed", "error", err)
			return map[string]string{}
		}
	}

	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if name, ok := c.names[id]; ok {
			out[id] = name
		}
	}
	return out
}

// Invalidate drops the cached list.
func (c *DefinitionCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = nil
	c.fetchedAt = time.Time{}
}

func (c *DefinitionCache) fresh() bool {
	return c.names != nil && c.now().Sub(c.fetchedAt) < c.ttl
}

func (c *DefinitionCache) covers(ids []string) bool {
	for _, id := range ids {
		if _, ok := c.names[id]; !ok {
			return false
		}
	}
	return true
}

func (c *DefinitionCache) refresh(ctx context.Context, token string) error {
	defs, err := c.fetcher.ListRoleDefinitions(ctx, token)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(defs))
	for _, d := range defs {
		if d.ID != "" && d.DisplayName != "" {
			names[d.ID] = d.DisplayName
		}
	}
	c.names = names
	c.fetchedAt = c.now()
	return nil
}
