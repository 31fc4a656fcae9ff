package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestMemoryCache_ReadThroughCycle(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var got payload
	found, err := c.Get(ctx, "dispute:id:1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetWithTTL(ctx, "dispute:id:1", payload{ID: "1", Status: "open"}, time.Minute))
	found, err = c.Get(ctx, "dispute:id:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "open", got.Status)

	require.NoError(t, c.Delete(ctx, "dispute:id:1"))
	assert.False(t, c.Has("dispute:id:1"))
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetWithTTL(ctx, "stats:disputes:all", payload{ID: "s"}, time.Hour))
	assert.True(t, c.Has("stats:disputes:all"))

	now = now.Add(time.Hour)
	var got payload
	found, err := c.Get(ctx, "stats:disputes:all", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheService_UnreachableRedisReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	svc := NewCacheService(client, time.Minute)
	defer svc.Close()

	var got payload
	found, err := svc.Get(context.Background(), "dispute:id:1", &got)
	assert.Error(t, err)
	assert.False(t, found)
	assert.Error(t, svc.HealthCheck(context.Background()))
}
