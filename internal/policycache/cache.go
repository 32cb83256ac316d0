package policycache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"conduit/internal/domain"
	"conduit/internal/platform/metrics"
)

// VersionBumper marks a scope's read model stale. The scope package's
// read model implements it; the cache only ever calls it best-effort.
type VersionBumper interface {
	BumpVersion(ctx context.Context, scopeID string) error
}

// Cache holds policy-change entries for the life of the process. It is
// never persisted: the same notification stream that fed it can rebuild
// it, and a cleared cache just means the next Get misses and the caller
// falls back to the authoritative source.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]domain.PolicyCacheEntry

	notifier  Notifier
	readModel VersionBumper
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheClock sets the clock used for CachedAt stamps.
func WithCacheClock(clock func() time.Time) CacheOption {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithCacheMetrics attaches pipeline metrics.
func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates an empty cache over the notifier. readModel may be nil when
// no read-model invalidation is wanted.
func New(notifier Notifier, readModel VersionBumper, logger *slog.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		entries:   make(map[string]domain.PolicyCacheEntry),
		notifier:  notifier,
		readModel: readModel,
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Register subscribes to policy-change notifications. Each notification
// bumps the read-model version of the scope it names, falling back to
// defaultScopeID when the change carries none, so stale grants get
// re-validated on next use. The returned Unsubscribe must be retained
// and called by the owner.
func (c *Cache) Register(ctx context.Context, defaultScopeID string) (Unsubscribe, error) {
	return c.notifier.Subscribe(ctx, func(change domain.PolicyChange) {
		scopeID := change.ScopeID
		if scopeID == "" {
			scopeID = defaultScopeID
		}
		c.apply(ctx, scopeID, change)
	})
}

func (c *Cache) apply(ctx context.Context, scopeID string, change domain.PolicyChange) {
	c.mu.Lock()
	switch change.ChangeType {
	case domain.PolicyDeleted:
		delete(c.entries, change.PolicyID)
	default:
		c.entries[change.PolicyID] = domain.PolicyCacheEntry{
			PolicyID:   change.PolicyID,
			ScopeID:    change.ScopeID,
			ChangeType: change.ChangeType,
			ChangedBy:  change.ChangedBy,
			CachedAt:   c.clock(),
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	c.metrics.SetPolicyCacheSize(size)

	if scopeID == "" || c.readModel == nil {
		return
	}
	// Best effort: a failed bump leaves one stale window, which the next
	// successful notification closes.
	if err := c.readModel.BumpVersion(ctx, scopeID); err != nil {
		c.logger.WarnContext(ctx, "read model version bump failed",
			"scope_id", scopeID,
			"policy_id", change.PolicyID,
			"error", err,
		)
	}
}

// Get returns the cached entry for policyID, if any. A miss means
// "unknown, ask the authoritative source", never "policy revoked".
func (c *Cache) Get(policyID string) (domain.PolicyCacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[policyID]
	return entry, ok
}

// GetAll returns a snapshot of every cached entry.
func (c *Cache) GetAll() []domain.PolicyCacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.PolicyCacheEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry)
	}
	return out
}

// Clear empties the cache. Safe at any time; in-flight commands consult
// the scope guard's own read model, not this cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]domain.PolicyCacheEntry)
	c.mu.Unlock()
	c.metrics.SetPolicyCacheSize(0)
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
