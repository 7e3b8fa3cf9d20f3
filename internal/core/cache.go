package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/mmk-ce-queue/internal/domain/model"
)

// CacheRepository defines the key/value cache used in front of the catalog.
type CacheRepository interface {
	// Set stores a value with the given TTL. A zero TTL never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns nil when the key is missing or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete reports whether a key was removed.
	Delete(ctx context.Context, key string) (bool, error)
	Health(ctx context.Context) error
}

// CatalogCacheConfig holds configuration for the component cache.
type CatalogCacheConfig struct {
	TTL time.Duration
}

// DefaultCatalogCacheConfig returns a CatalogCacheConfig with sensible defaults.
func DefaultCatalogCacheConfig() CatalogCacheConfig {
	return CatalogCacheConfig{TTL: 10 * time.Minute}
}

// CachedCatalogOptions bundles dependencies for NewCachedCatalog.
type CachedCatalogOptions struct {
	Cache      CacheRepository
	Components ComponentRepository
	Config     CatalogCacheConfig
	Logger     *slog.Logger
}

// CachedCatalog resolves components through a read-through cache. Cache
// failures fall back to the repository.
type CachedCatalog struct {
	cache      CacheRepository
	components ComponentRepository
	ttl        time.Duration
	logger     *slog.Logger
}

// NewCachedCatalog creates a CachedCatalog. A nil cache disables caching.
func NewCachedCatalog(opts CachedCatalogOptions) (*CachedCatalog, error) {
	if opts.Components == nil {
		return nil, errors.New("ComponentRepository is required")
	}
	ttl := opts.Config.TTL
	if ttl <= 0 {
		ttl = DefaultCatalogCacheConfig().TTL
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "catalog")
	}
	return &CachedCatalog{
		cache:      opts.Cache,
		components: opts.Components,
		ttl:        ttl,
		logger:     logger,
	}, nil
}

// Resolve returns the known components among ids. Unknown ids are omitted.
func (c *CachedCatalog) Resolve(ctx context.Context, ids ...string) (map[string]*model.Component, error) {
	out := make(map[string]*model.Component, len(ids))
	missing := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if comp := c.cached(ctx, id); comp != nil {
			out[id] = comp
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	found, err := c.components.GetByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load components: %w", err)
	}
	for id, comp := range found {
		out[id] = comp
		c.store(ctx, comp)
	}
	return out, nil
}

// Invalidate drops a cached component.
func (c *CachedCatalog) Invalidate(ctx context.Context, id string) error {
	if c.cache == nil || id == "" {
		return nil
	}
	_, err := c.cache.Delete(ctx, componentKey(id))
	return err
}

func (c *CachedCatalog) cached(ctx context.Context, id string) *model.Component {
	if c.cache == nil {
		return nil
	}
	raw, err := c.cache.Get(ctx, componentKey(id))
	if err != nil {
		c.warn("component cache get failed", id, err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	var comp model.Component
	if err := json.Unmarshal(raw, &comp); err != nil {
		c.warn("component cache entry unreadable", id, err)
		return nil
	}
	return &comp
}

func (c *CachedCatalog) store(ctx context.Context, comp *model.Component) {
	if c.cache == nil || comp == nil {
		return
	}
	raw, err := json.Marshal(comp)
	if err != nil {
		c.warn("component encode failed", comp.ID, err)
		return
	}
	if err := c.cache.Set(ctx, componentKey(comp.ID), raw, c.ttl); err != nil {
		c.warn("component cache set failed", comp.ID, err)
	}
}

func (c *CachedCatalog) warn(msg, id string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, "component_id", id, "error", err)
}

func componentKey(id string) string {
	return "ce:component:" + id
}
