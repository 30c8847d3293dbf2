package lock

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteKeys(t *testing.T) {
	assert.Equal(t, []string{"quote:3", "quote:10"}, QuoteKeys(3, 10))
	assert.Equal(t, []string{"groups", "quote:10", "quote:3"}, sortKeys([]string{"quote:3", "groups", "quote:10", "quote:3"}))
}

func TestLocal_ExcludesOverlappingKeys(t *testing.T) {
	l := NewLocal()
	ctx := context.TODO()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys := []string{QuoteKey(1), QuoteKey(uint(i + 2))}
			if i%2 == 0 {
				keys = []string{QuoteKey(uint(i + 2)), QuoteKey(1)}
			}
			unlock, err := l.Lock(ctx, keys...)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, l.keys)
}

func TestLocal_DisjointKeys(t *testing.T) {
	l := NewLocal()
	ctx := context.TODO()

	unlockA, err := l.Lock(ctx, QuoteKey(1))
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := l.Lock(ctx, QuoteKey(2), GroupsKey)
	require.NoError(t, err)
	unlockB()
}

func TestLocal_ContextCancelled(t *testing.T) {
	l := NewLocal()

	unlock, err := l.Lock(context.TODO(), QuoteKey(1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, QuoteKey(0), QuoteKey(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the key taken before the wait was released
	unlock0, err := l.Lock(context.TODO(), QuoteKey(0))
	require.NoError(t, err)
	unlock0()

	unlock()
	unlock()

	unlock, err = l.Lock(context.TODO(), QuoteKey(1))
	require.NoError(t, err)
	unlock()
}

func TestRedis_Lock(t *testing.T) {
	addr := os.Getenv("APHORIUM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("APHORIUM_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	r := NewRedisFromClient(client, time.Second, 100*time.Millisecond)
	defer r.Close()
	ctx := context.TODO()
	require.NoError(t, r.Ping(ctx))

	unlock, err := r.Lock(ctx, QuoteKey(1), QuoteKey(2))
	require.NoError(t, err)

	_, err = r.Lock(ctx, QuoteKey(2))
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()

	unlock, err = r.Lock(ctx, QuoteKey(2))
	require.NoError(t, err)
	unlock()
}

func TestRedis_LockOutlivesTTL(t *testing.T) {
	addr := os.Getenv("APHORIUM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("APHORIUM_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	r := NewRedisFromClient(client, 300*time.Millisecond, 100*time.Millisecond)
	defer r.Close()
	ctx := context.TODO()

	unlock, err := r.Lock(ctx, QuoteKey(7))
	require.NoError(t, err)

	// held well past its ttl, the key is still ours
	time.Sleep(time.Second)
	_, err = r.Lock(ctx, QuoteKey(7))
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlock, err = r.Lock(ctx, QuoteKey(7))
	require.NoError(t, err)
	unlock()
}
