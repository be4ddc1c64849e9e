package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

const (
	defaultLockTTL = 10 * time.Second
	retryInterval  = 15 * time.Millisecond
	keyPrefix      = "rental:lock:"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a ports.Locker shared by every replica through Redis.
// Key format: rental:lock:<movie|client>:<id>
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

var _ ports.Locker = (*Locker)(nil)

// NewLocker creates a Locker. Locks expire after ttl so a crashed replica
// cannot hold them forever; ttl must exceed the operation timeout.
func NewLocker(client *redis.Client, ttl time.Duration, log zerolog.Logger) *Locker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Locker{client: client, ttl: ttl, log: log}
}

// Lock acquires every key in sorted order, polling until ctx is done.
func (l *Locker) Lock(ctx context.Context, keys ...string) (func(), error) {
	token := uuid.NewString()
	held := make([]string, 0, len(keys))

	for _, key := range uniqueSorted(keys) {
		if err := l.acquire(ctx, keyPrefix+key, token); err != nil {
			l.release(held, token)
			return nil, fmt.Errorf("%w: lock %s: %w", domain.ErrUnavailable, key, err)
		}
		held = append(held, keyPrefix+key)
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(held, token) }) }, nil
}

func (l *Locker) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) release(keys []string, token string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	for i := len(keys) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, l.client, []string{keys[i]}, token).Err(); err != nil {
			l.log.Warn().Err(err).Str("key", keys[i]).Msg("lock release failed; it will expire")
		}
	}
}

// Ping reports whether the lock store is reachable.
func (l *Locker) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %w", domain.ErrUnavailable, err)
	}
	return nil
}

func uniqueSorted(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i == 0 || k != out[n-1] {
			out[n] = k
			n++
		}
	}
	return out[:n]
}
