package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestroapp/maestro/pkg/storage"
	"github.com/maestroapp/maestro/pkg/storage/postgres"
)

func setupRedis(t *testing.T) *postgres.RedisClient {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := postgres.NewRedisClient(storage.Config{
		RedisURL: "redis://" + mr.Addr(),
		CacheTTL: map[string]time.Duration{"role_permissions": 5 * time.Minute},
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestCacheResolvesAndInvalidates(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	redis := setupRedis(t)
	logger, metrics := testDeps(t)
	cache := NewPermissionCache(store, redis, 64, time.Minute, metrics, logger)
	ctx := context.Background()

	role := &Role{Name: "STAFF", DisplayName: "Office Staff", Permissions: []string{"STUDENT:READ:ANY"}}
	require.NoError(t, store.CreateRole(ctx, role))

	perms, err := cache.PermissionsForRole(ctx, "STAFF")
	require.NoError(t, err)
	assert.Equal(t, []string{"STUDENT:READ:ANY"}, perms)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues(cacheTierMemory)))

	// second read is a memory hit
	_, err = cache.PermissionsForRole(ctx, "STAFF")
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues(cacheTierMemory)))

	// a store mutation is invisible until the cache is invalidated
	require.NoError(t, store.UpdateRolePermissions(ctx, role.ID, []string{"STUDENT:READ:ANY", "AUDIT:READ:ANY"}))
	perms, err = cache.PermissionsForRole(ctx, "STAFF")
	require.NoError(t, err)
	assert.Len(t, perms, 1)

	cache.Invalidate(ctx, "STAFF")
	perms, err = cache.PermissionsForRole(ctx, "STAFF")
	require.NoError(t, err)
	assert.Len(t, perms, 2)
}

func TestCachePromotesFromRedis(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	redis := setupRedis(t)
	logger, metrics := testDeps(t)
	ctx := context.Background()

	// seeded in Redis only; the store has no such role
	require.NoError(t, redis.SetRolePermissions(ctx, "TEACHER", []string{"CLASS:READ:OWN"}))

	cache := NewPermissionCache(store, redis, 64, time.Minute, metrics, logger)
	perms, err := cache.PermissionsForRole(ctx, "TEACHER")
	require.NoError(t, err)
	assert.Equal(t, []string{"CLASS:READ:OWN"}, perms)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues(cacheTierRedis)))

	// the hit was promoted to the memory tier
	require.NoError(t, redis.InvalidateRole(ctx, "TEACHER"))
	perms, err = cache.PermissionsForRole(ctx, "TEACHER")
	require.NoError(t, err)
	assert.Equal(t, []string{"CLASS:READ:OWN"}, perms)
}

func TestCacheUnknownRoleResolvesEmpty(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	logger, metrics := testDeps(t)
	cache := NewPermissionCache(store, nil, 64, time.Minute, metrics, logger)

	perms, err := cache.PermissionsForRole(context.Background(), "GHOST")
	require.NoError(t, err)
	assert.NotNil(t, perms)
	assert.Empty(t, perms)
}

func TestCacheSurvivesRedisOutage(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	logger, metrics := testDeps(t)
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	redis, err := postgres.NewRedisClient(storage.Config{
		RedisURL: "redis://" + mr.Addr(),
		CacheTTL: map[string]time.Duration{"role_permissions": 5 * time.Minute},
	})
	require.NoError(t, err)
	t.Cleanup(func() { redis.Close() })

	require.NoError(t, store.CreateRole(ctx, &Role{
		Name: "ADMIN", DisplayName: "Administrator", Permissions: []string{PermSystemManage},
	}))

	mr.Close()

	cache := NewPermissionCache(store, redis, 64, time.Minute, metrics, logger)
	perms, err := cache.PermissionsForRole(ctx, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, []string{PermSystemManage}, perms)
}

func TestCacheDisabled(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	logger, metrics := testDeps(t)
	cache := NewPermissionCache(store, nil, 0, 0, metrics, logger)
	ctx := context.Background()

	role := &Role{Name: "STUDENT", DisplayName: "Student", Permissions: []string{"USER:READ:OWN"}}
	require.NoError(t, store.CreateRole(ctx, role))

	perms, err := cache.PermissionsForRole(ctx, "STUDENT")
	require.NoError(t, err)
	assert.Equal(t, []string{"USER:READ:OWN"}, perms)

	// with caching off, store mutations are visible immediately
	require.NoError(t, store.UpdateRolePermissions(ctx, role.ID, []string{"USER:READ:OWN", "USER:UPDATE:OWN"}))
	perms, err = cache.PermissionsForRole(ctx, "STUDENT")
	require.NoError(t, err)
	assert.Len(t, perms, 2)
}

func TestCacheStoreErrorPropagates(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	logger, metrics := testDeps(t)
	cache := NewPermissionCache(store, nil, 64, time.Minute, metrics, logger)

	require.NoError(t, db.Close())

	_, err := cache.PermissionsForRole(context.Background(), "STAFF")
	assert.Error(t, err)
}
