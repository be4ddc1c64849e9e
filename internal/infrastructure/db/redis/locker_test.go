package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, ttl, zerolog.Nop()), mr
}

func TestLocker_AcquireAndRelease(t *testing.T) {
	l, mr := newTestLocker(t, time.Minute)

	unlock, err := l.Lock(context.Background(), "movie:m1", "client:c1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"movie:m1"))
	assert.True(t, mr.Exists(keyPrefix+"client:c1"))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"movie:m1"))

	unlock()
	unlock()
	assert.False(t, mr.Exists(keyPrefix+"movie:m1"))
	assert.False(t, mr.Exists(keyPrefix+"client:c1"))
}

func TestLocker_Exclusive(t *testing.T) {
	l, _ := newTestLocker(t, time.Minute)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			unlock, err := l.Lock(ctx, "movie:m1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestLocker_TimeoutReleasesPartialAcquisition(t *testing.T) {
	l, mr := newTestLocker(t, time.Minute)

	unlock, err := l.Lock(context.Background(), "movie:m1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// "client:c1" sorts first and is acquired before waiting on the movie.
	_, err = l.Lock(ctx, "movie:m1", "client:c1")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.False(t, mr.Exists(keyPrefix+"client:c1"))
}

func TestLocker_ReleaseKeepsForeignToken(t *testing.T) {
	l, mr := newTestLocker(t, time.Second)

	unlock, err := l.Lock(context.Background(), "movie:m1")
	require.NoError(t, err)

	// Our lock expires and another replica takes it.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set(keyPrefix+"movie:m1", "other-replica"))

	unlock()
	got, err := mr.Get(keyPrefix + "movie:m1")
	require.NoError(t, err)
	assert.Equal(t, "other-replica", got)
}

func TestLocker_UnreachableIsUnavailable(t *testing.T) {
	l, mr := newTestLocker(t, time.Minute)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := l.Lock(ctx, "movie:m1")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.ErrorIs(t, l.Ping(ctx), domain.ErrUnavailable)
}
