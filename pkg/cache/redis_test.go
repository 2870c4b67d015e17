package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCache connects to REDIS_TEST_ADDR and skips when it is unset or
// unreachable.
func newTestCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := New(ctx, WithAddress(addr), WithPrefix("milestones-test:"+t.Name()+":"), WithDialTimeout(time.Second))
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, WithAddress("127.0.0.1:1"), WithDialTimeout(100*time.Millisecond))
	assert.Error(t, err)
}

func TestKeyPrefix(t *testing.T) {
	c := &Cache{prefix: "milestones:"}
	assert.Equal(t, "milestones:grpc:group_feedback:run-1", c.key("grpc:group_feedback:run-1"))
}

func TestCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	type stat struct {
		Count int     `json:"count"`
		Mean  float64 `json:"mean"`
	}

	var got stat
	err := c.Get(ctx, "missing", &got)
	assert.True(t, errors.Is(err, redis.Nil))

	require.NoError(t, c.Set(ctx, "stat", stat{Count: 3, Mean: 2.5}, time.Minute))
	require.NoError(t, c.Get(ctx, "stat", &got))
	assert.Equal(t, stat{Count: 3, Mean: 2.5}, got)

	require.NoError(t, c.Delete(ctx, "stat", "missing"))
	assert.ErrorIs(t, c.Get(ctx, "stat", &got), redis.Nil)
}
