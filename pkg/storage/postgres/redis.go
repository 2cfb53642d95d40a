package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/maestroapp/maestro/pkg/storage"
)

// RedisClient handles shared cache and coordination operations
type RedisClient struct {
	client *redis.Client
	config storage.Config
}

// NewRedisClient creates a new Redis client
func NewRedisClient(config storage.Config) (*RedisClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	// Override with config values if provided
	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB >= 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisMaxRetries > 0 {
		opts.MaxRetries = config.RedisMaxRetries
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{
		client: client,
		config: config,
	}, nil
}

// GetRolePermissions retrieves a role's permission set from cache.
// Returns (nil, nil) on a cache miss.
func (c *RedisClient) GetRolePermissions(ctx context.Context, roleName string) ([]string, error) {
	key := rolePermissionsKey(roleName)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil // Cache miss
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var permissions []string
	if err := json.Unmarshal([]byte(data), &permissions); err != nil {
		// Delete corrupt data so the next read repopulates it
		c.client.Del(ctx, key)
		return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
	}

	return permissions, nil
}

// SetRolePermissions stores a role's permission set in cache
func (c *RedisClient) SetRolePermissions(ctx context.Context, roleName string, permissions []string) error {
	key := rolePermissionsKey(roleName)
	ttl := c.config.CacheTTL["role_permissions"]

	data, err := json.Marshal(permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// InvalidateRole removes a role's cached permission set
func (c *RedisClient) InvalidateRole(ctx context.Context, roleName string) error {
	return c.client.Del(ctx, rolePermissionsKey(roleName)).Err()
}

// InvalidatePatterns removes keys matching patterns
func (c *RedisClient) InvalidatePatterns(ctx context.Context, patterns ...string) error {
	for _, pattern := range patterns {
		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan failed for pattern %s: %w", pattern, err)
		}
	}
	return nil
}

// AcquireLock takes a named lock using SETNX. Used by the retention janitor
// so only one instance runs a sweep. Returns false when the lock is held.
func (c *RedisClient) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, lockKey(name), time.Now().Unix(), ttl).Result()
}

// ReleaseLock releases a named lock
func (c *RedisClient) ReleaseLock(ctx context.Context, name string) error {
	return c.client.Del(ctx, lockKey(name)).Err()
}

// Ping checks Redis connectivity
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetClient returns the underlying Redis client for health checks
func (c *RedisClient) GetClient() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	return c.client.Close()
}

// GetPoolStats returns connection pool statistics
func (c *RedisClient) GetPoolStats() *redis.PoolStats {
	return c.client.PoolStats()
}

func rolePermissionsKey(roleName string) string {
	return fmt.Sprintf("role:perms:%s", roleName)
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}
