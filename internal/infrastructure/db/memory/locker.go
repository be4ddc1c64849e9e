package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

// Locker is a process-local keyed lock for single-replica deployments.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// slot is dropped from the map once no holder or waiter references it.
type slot struct {
	ch   chan struct{}
	refs int
}

var _ ports.Locker = (*Locker)(nil)

func NewLocker() *Locker {
	return &Locker{slots: make(map[string]*slot)}
}

// Lock acquires keys in sorted order so that overlapping callers cannot deadlock.
func (l *Locker) Lock(ctx context.Context, keys ...string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: lock: %w", domain.ErrUnavailable, err)
	}

	held := make([]string, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i])
		}
	}

	for _, key := range uniqueSorted(keys) {
		sl := l.acquire(key)
		select {
		case sl.ch <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.unref(key)
			release()
			return nil, fmt.Errorf("%w: lock %s: %w", domain.ErrUnavailable, key, ctx.Err())
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *Locker) acquire(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl, ok := l.slots[key]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = sl
	}
	sl.refs++
	return sl
}

func (l *Locker) release(key string) {
	l.mu.Lock()
	sl := l.slots[key]
	l.mu.Unlock()
	<-sl.ch
	l.unref(key)
}

func (l *Locker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl := l.slots[key]
	sl.refs--
	if sl.refs == 0 {
		delete(l.slots, key)
	}
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
