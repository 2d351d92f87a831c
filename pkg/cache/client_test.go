package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheIncrementWindow(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		n, err := c.IncrementWindow(ctx, "rl", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	now = now.Add(61 * time.Second)
	n, err := c.IncrementWindow(ctx, "rl", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "window restarts after expiry")
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	type facts struct {
		Videos int `json:"videos"`
	}
	require.NoError(t, SetJSON(ctx, c, "f", facts{Videos: 3}, 0))

	var out facts
	require.NoError(t, GetJSON(ctx, c, "f", &out))
	assert.Equal(t, 3, out.Videos)

	assert.ErrorIs(t, GetJSON(ctx, c, "absent", &out), ErrMiss)
}

func TestRedisClientIntegration(t *testing.T) {
	addr := os.Getenv("EDTECH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("EDTECH_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	c, err := NewRedisClient(addr, "", 0)
	require.NoError(t, err)
	defer c.Close()

	key := "edtech:test:" + t.Name()
	defer c.Delete(ctx, key)

	n, err := c.IncrementWindow(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = c.Get(ctx, "edtech:test:absent")
	assert.ErrorIs(t, err, ErrMiss)
}
