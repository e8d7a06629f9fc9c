package businessflow

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventLocker guards per-key critical sections across workers. Acquire
// returns false when another holder owns the key.
type EventLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisEventLocker implements EventLocker on a shared Redis instance
type RedisEventLocker struct {
	rc     *redis.Client
	prefix string
}

// NewRedisEventLocker creates a Redis-backed locker. All keys are namespaced
// under the given prefix.
func NewRedisEventLocker(rc *redis.Client, prefix string) *RedisEventLocker {
	return &RedisEventLocker{rc: rc, prefix: prefix}
}

func (l *RedisEventLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rc.SetNX(ctx, l.prefix+key, "1", ttl).Result()
}

func (l *RedisEventLocker) Release(ctx context.Context, key string) error {
	return l.rc.Del(ctx, l.prefix+key).Err()
}

// MemoryEventLocker implements EventLocker in process memory. It is meant
// for tests and single-node deployments.
type MemoryEventLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewMemoryEventLocker creates an in-process locker
func NewMemoryEventLocker() *MemoryEventLocker {
	return &MemoryEventLocker{held: make(map[string]time.Time)}
}

func (l *MemoryEventLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expires, ok := l.held[key]; ok && expires.After(now) {
		return false, nil
	}

	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *MemoryEventLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, key)
	return nil
}
