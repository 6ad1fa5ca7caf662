package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gridValue struct {
	Version uint64    `json:"version"`
	Vols    []float64 `json:"vols"`
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	in := gridValue{Version: 3, Vols: []float64{0.2, 0.25}}
	require.NoError(t, mc.Set(ctx, "grid:3:2x1", in, 0))

	var out gridValue
	require.NoError(t, mc.Get(ctx, "grid:3:2x1", &out))
	assert.Equal(t, in, out)

	// callers get a copy
	out.Vols[0] = 9
	var again gridValue
	require.NoError(t, mc.Get(ctx, "grid:3:2x1", &again))
	assert.Equal(t, 0.2, again.Vols[0])
}

func TestMemoryCache_MissAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	var out gridValue
	assert.ErrorIs(t, mc.Get(ctx, "nope", &out), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "short", gridValue{Version: 1}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	assert.ErrorIs(t, mc.Get(ctx, "short", &out), ErrCacheMiss)
}

func TestMemoryCache_DeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	for _, k := range []string{"grid:1:a", "grid:1:b", "grid:2:a", "point:1"} {
		require.NoError(t, mc.Set(ctx, k, 1, 0))
	}
	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("grid:1:")))
	assert.Equal(t, 2, mc.Len())

	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("nothing:")))
	assert.Equal(t, 2, mc.Len())
}

func TestLayeredCache_BackfillsL1(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, WithLayeredMemoryTTL(time.Minute))
	defer lc.Close()

	// present only in L2
	require.NoError(t, remote.Set(ctx, "k", gridValue{Version: 7}, 0))

	var out gridValue
	require.NoError(t, lc.Get(ctx, "k", &out))
	assert.Equal(t, uint64(7), out.Version)
	assert.Equal(t, 1, lc.mem.Len())

	require.NoError(t, remote.DeleteByPattern(ctx, "k"))
	require.NoError(t, lc.Get(ctx, "k", &out), "served from L1")

	require.NoError(t, lc.DeleteByPattern(ctx, BuildPattern("k")))
	assert.ErrorIs(t, lc.Get(ctx, "k", &out), ErrCacheMiss)
}

func TestLayeredCache_L1TTLCapped(t *testing.T) {
	lc := NewLayeredCache(NewMemoryCache(), WithLayeredMemoryTTL(time.Second))
	assert.Equal(t, time.Second, lc.l1TTL(0))
	assert.Equal(t, time.Second, lc.l1TTL(time.Hour))
	assert.Equal(t, 10*time.Millisecond, lc.l1TTL(10*time.Millisecond))
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rc, err := NewRedisCache(WithRedisAddr(addr), WithRedisPrefix("volsurf-test"))
	require.NoError(t, err)
	defer rc.Close()

	require.NoError(t, rc.Set(ctx, "grid:1", gridValue{Version: 1}, time.Minute))
	var out gridValue
	require.NoError(t, rc.Get(ctx, "grid:1", &out))
	assert.Equal(t, uint64(1), out.Version)

	require.NoError(t, rc.DeleteByPattern(ctx, "grid:*"))
	assert.ErrorIs(t, rc.Get(ctx, "grid:1", &out), ErrCacheMiss)
}
