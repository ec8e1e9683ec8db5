package mixer_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdos26/client-node/pkg/mixer"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	t.Parallel()

	cache := mixer.NewMemoryCache(10)
	ctx := context.Background()

	entry := &mixer.CacheEntry{
		Data:      []byte(`{"id":1}`),
		ExpiresAt: time.Now().Add(1 * time.Hour),
		ETag:      "abc123",
	}

	err := cache.Set(ctx, "key1", entry)
	require.NoError(t, err)

	retrieved, err := cache.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, retrieved.Data)
	assert.Equal(t, entry.ETag, retrieved.ETag)
}

func TestMemoryCache_GetNonExistent(t *testing.T) {
	t.Parallel()

	cache := mixer.NewMemoryCache(10)

	_, err := cache.Get(context.Background(), "nonexistent")
	require.ErrorIs(t, err, mixer.ErrKeyNotFound)
}

func TestMemoryCache_GetExpired(t *testing.T) {
	t.Parallel()

	cache := mixer.NewMemoryCache(10)
	ctx := context.Background()

	err := cache.Set(ctx, "key1", &mixer.CacheEntry{
		Data:      []byte("test data"),
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	})
	require.NoError(t, err)

	_, err = cache.Get(ctx, "key1")
	require.ErrorIs(t, err, mixer.ErrEntryExpired)

	_, err = cache.Get(ctx, "key1")
	require.ErrorIs(t, err, mixer.ErrKeyNotFound)
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	t.Parallel()

	cache := mixer.NewMemoryCache(10)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Set(ctx, key, &mixer.CacheEntry{ExpiresAt: time.Now().Add(time.Hour)}))
	}

	require.NoError(t, cache.Delete(ctx, "a"))
	assert.False(t, cache.Has(ctx, "a"))
	assert.True(t, cache.Has(ctx, "b"))

	require.NoError(t, cache.Clear(ctx))
	assert.False(t, cache.Has(ctx, "b"))
	assert.False(t, cache.Has(ctx, "c"))
}

func TestMemoryCache_EvictsEarliestExpiry(t *testing.T) {
	t.Parallel()

	cache := mixer.NewMemoryCache(2)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, cache.Set(ctx, "soon", &mixer.CacheEntry{ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, cache.Set(ctx, "later", &mixer.CacheEntry{ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, cache.Set(ctx, "later", &mixer.CacheEntry{ExpiresAt: now.Add(2 * time.Hour)}))
	assert.True(t, cache.Has(ctx, "soon"))

	require.NoError(t, cache.Set(ctx, "new", &mixer.CacheEntry{ExpiresAt: now.Add(time.Hour)}))
	assert.False(t, cache.Has(ctx, "soon"))
	assert.True(t, cache.Has(ctx, "later"))
	assert.True(t, cache.Has(ctx, "new"))
}

func TestMemoryCache_Cleanup(t *testing.T) {
	t.Parallel()

	cache := mixer.NewMemoryCache(0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "stale", &mixer.CacheEntry{ExpiresAt: time.Now().Add(-time.Second)}))
	require.NoError(t, cache.Set(ctx, "fresh", &mixer.CacheEntry{ExpiresAt: time.Now().Add(time.Hour)}))

	cache.Cleanup()

	_, err := cache.Get(ctx, "stale")
	require.ErrorIs(t, err, mixer.ErrKeyNotFound)
	assert.True(t, cache.Has(ctx, "fresh"))
}

func TestCachingPolicy_ShouldCache(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		policy *mixer.CachingPolicy
		method string
		path   string
		status int
		want   bool
	}{
		{name: "default GET", policy: mixer.DefaultCachingPolicy(), method: "get", path: "/api/v1/channels", status: http.StatusOK, want: true},
		{name: "default POST", policy: mixer.DefaultCachingPolicy(), method: "POST", path: "/api/v1/channels", status: http.StatusOK},
		{name: "DELETE never", policy: &mixer.CachingPolicy{CacheGET: true, CachePOST: true}, method: "DELETE", path: "/x", status: http.StatusOK},
		{name: "errors skipped", policy: mixer.DefaultCachingPolicy(), method: "GET", path: "/api/v1/channels", status: http.StatusNotFound},
		{name: "errors allowed", policy: &mixer.CachingPolicy{CacheGET: true, CacheErrors: true}, method: "GET", path: "/x", status: http.StatusNotFound, want: true},
		{name: "oauth excluded", policy: mixer.DefaultCachingPolicy(), method: "GET", path: "/api/v1/oauth/token", status: http.StatusOK},
		{name: "include prefix", policy: &mixer.CachingPolicy{CacheGET: true, IncludePaths: []string{"/api/v1/types"}}, method: "GET", path: "/api/v1/types/1", status: http.StatusOK, want: true},
		{name: "outside include", policy: &mixer.CachingPolicy{CacheGET: true, IncludePaths: []string{"/api/v1/types"}}, method: "GET", path: "/api/v1/channels", status: http.StatusOK},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.want, testCase.policy.ShouldCache(testCase.method, testCase.path, testCase.status))
		})
	}
}

func TestCacheManager(t *testing.T) {
	t.Parallel()

	manager := mixer.NewCacheManager(mixer.NewMemoryCache(10), nil)
	ctx := context.Background()

	assert.Equal(t, "GET:/channels", manager.GetCacheKey("GET", "/channels", nil))
	assert.Equal(t, "GET:/channels:a=1&b=2", manager.GetCacheKey("GET", "/channels", map[string]string{"b": "2", "a": "1"}))

	_, err := manager.Get(ctx, "missing")
	require.Error(t, err)

	require.NoError(t, manager.SetWithETag(ctx, "k", []byte("v"), "etag", 0))

	entry, err := manager.GetEntry(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "etag", entry.ETag)
	assert.WithinDuration(t, time.Now().Add(manager.Options().DefaultTTL), entry.ExpiresAt, time.Minute)

	data, err := manager.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	require.NoError(t, manager.Invalidate(ctx, "k"))

	_, err = manager.Get(ctx, "k")
	require.Error(t, err)

	stats := manager.GetStats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.InDelta(t, 0.5, stats.GetHitRate(), 0.0001)
}

func TestCacheManager_NilCacheDisables(t *testing.T) {
	t.Parallel()

	manager := mixer.NewCacheManager(nil, &mixer.CacheOptions{DefaultTTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "k", []byte("v"), 0))

	_, err := manager.Get(ctx, "k")
	require.ErrorIs(t, err, mixer.ErrCacheDisabled)
	assert.True(t, manager.ShouldCache("GET", "/api/v1/users/1", http.StatusOK))
}

func TestCacheStats_GetHitRate_NoTraffic(t *testing.T) {
	t.Parallel()

	stats := mixer.CacheStats{}
	assert.Zero(t, stats.GetHitRate())
}
