package dedupe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	guard := NewMemoryGuard(time.Minute)
	guard.now = func() time.Time { return now }

	first, err := guard.FirstSeen(ctx, "100")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := guard.FirstSeen(ctx, "100")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := guard.FirstSeen(ctx, "101")
	require.NoError(t, err)
	assert.True(t, other)

	now = now.Add(time.Minute)
	expired, err := guard.FirstSeen(ctx, "100")
	require.NoError(t, err)
	assert.True(t, expired, "ids are forgotten after the TTL")
}

func TestMemoryGuard_Forget(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryGuard(time.Hour)

	first, err := guard.FirstSeen(ctx, "7")
	require.NoError(t, err)
	require.True(t, first)

	require.NoError(t, guard.Forget(ctx, "7"))
	require.NoError(t, guard.Forget(ctx, "unknown"))

	again, err := guard.FirstSeen(ctx, "7")
	require.NoError(t, err)
	assert.True(t, again)
}

func TestMemoryGuard_Concurrent(t *testing.T) {
	guard := NewMemoryGuard(0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	firsts := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := guard.FirstSeen(context.Background(), "same")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, firsts)
}

func TestRedisGuard_Unreachable(t *testing.T) {
	guard := NewRedisGuard(RedisOptions{Addr: "127.0.0.1:1"})
	guard.client = redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer guard.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := guard.FirstSeen(ctx, "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record update 1")

	err = guard.Forget(ctx, "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to forget update 1")

	assert.Error(t, guard.Ping(ctx))
	assert.Equal(t, 24*time.Hour, guard.ttl)
}
