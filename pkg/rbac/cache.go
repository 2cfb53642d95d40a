package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/maestroapp/maestro/pkg/observability"
	"github.com/maestroapp/maestro/pkg/storage/postgres"
)

// Cache tier labels for hit/miss metrics
const (
	cacheTierMemory = "memory"
	cacheTierRedis  = "redis"
)

// PermissionCache resolves role names to permission sets through a two-tier
// cache: an in-process expiring LRU in front of Redis, with the roles table
// as the source of truth. It implements auth.PermissionResolver.
type PermissionCache struct {
	store   *Store
	redis   *postgres.RedisClient
	local   *expirable.LRU[string, []string]
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewPermissionCache creates the resolver. redis may be nil to run on the
// local tier alone; entries <= 0 disables caching entirely and every lookup
// goes to the store.
func NewPermissionCache(store *Store, redis *postgres.RedisClient, entries int, ttl time.Duration, metrics *observability.Metrics, logger *observability.Logger) *PermissionCache {
	var local *expirable.LRU[string, []string]
	if entries > 0 {
		local = expirable.NewLRU[string, []string](entries, nil, ttl)
	}
	return &PermissionCache{
		store:   store,
		redis:   redis,
		local:   local,
		metrics: metrics,
		logger:  logger,
	}
}

// PermissionsForRole returns the permission set for a role name, consulting
// the local tier, then Redis, then the store. A role missing from the store
// resolves to an empty set so a stale token stays authenticated but
// powerless; storage failures propagate so the auth middleware fails closed.
func (c *PermissionCache) PermissionsForRole(ctx context.Context, role string) ([]string, error) {
	if c.local == nil {
		return c.loadFromStore(ctx, role)
	}

	if perms, ok := c.local.Get(role); ok {
		c.metrics.RecordCacheHit(ctx, cacheTierMemory)
		return perms, nil
	}
	c.metrics.RecordCacheMiss(ctx, cacheTierMemory)

	if c.redis != nil {
		perms, err := c.redis.GetRolePermissions(ctx, role)
		switch {
		case err != nil:
			// Redis trouble must not break resolution; the store still can
			c.logger.WithError(err).WithField("role", role).Warn("Role cache read failed")
		case perms != nil:
			c.metrics.RecordCacheHit(ctx, cacheTierRedis)
			c.local.Add(role, perms)
			return perms, nil
		default:
			c.metrics.RecordCacheMiss(ctx, cacheTierRedis)
		}
	}

	perms, err := c.loadFromStore(ctx, role)
	if err != nil {
		return nil, err
	}

	c.local.Add(role, perms)
	if c.redis != nil {
		if err := c.redis.SetRolePermissions(ctx, role, perms); err != nil {
			c.logger.WithError(err).WithField("role", role).Warn("Role cache write failed")
		}
	}
	return perms, nil
}

// Invalidate drops a role from both cache tiers. Must be called after every
// mutation of the role's permission set.
func (c *PermissionCache) Invalidate(ctx context.Context, role string) {
	if c.local != nil {
		c.local.Remove(role)
	}
	if c.redis != nil {
		if err := c.redis.InvalidateRole(ctx, role); err != nil {
			c.logger.WithError(err).WithField("role", role).Warn("Role cache invalidation failed")
		}
	}
}

func (c *PermissionCache) loadFromStore(ctx context.Context, role string) ([]string, error) {
	r, err := c.store.GetRoleByName(ctx, role)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return r.Permissions, nil
}
