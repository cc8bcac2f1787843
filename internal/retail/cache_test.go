package retail

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheVersioning(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver, "first read initialises the version")

	key, err := cache.BuildKey(ctx, "retail", "shifts")
	require.NoError(t, err)
	assert.Equal(t, "retail:shifts:1", key)

	require.NoError(t, cache.Bump(ctx))

	key, err = cache.BuildKey(ctx, "retail", "shifts")
	require.NoError(t, err)
	assert.Equal(t, "retail:shifts:2", key)
}

func TestCacheFetchJSON(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (interface{}, error) {
		loads++
		return []ShiftCount{{Shift: ShiftMorning, Orders: 4}}, nil
	}

	var out []ShiftCount
	require.NoError(t, cache.FetchJSON(ctx, "k", &out, loader))
	require.Len(t, out, 1)
	assert.Equal(t, 1, loads)

	out = nil
	require.NoError(t, cache.FetchJSON(ctx, "k", &out, loader))
	require.Len(t, out, 1)
	assert.Equal(t, 1, loads, "second fetch must come from redis")
}

func TestCacheNilReceiver(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "retail", "shifts")
	require.NoError(t, err)
	assert.Equal(t, "retail:shifts", key)

	var out []ShiftCount
	err = cache.FetchJSON(ctx, key, &out, func(context.Context) (interface{}, error) {
		return []ShiftCount{{Shift: ShiftEvening, Orders: 2}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, out, 1)

	assert.NoError(t, cache.Bump(ctx))
}
