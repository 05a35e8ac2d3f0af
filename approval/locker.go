package approval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/db"
	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
)

// Locker serializes work per lookup key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// MemoryLocker is a keyed mutex for a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
		return func() { l.release(key, kl) }, nil
	case <-ctx.Done():
		l.mu.Lock()
		l.drop(key, kl)
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %s: %v", gw_errors.ErrLockNotAcquired, key, ctx.Err())
	}
}

func (l *MemoryLocker) release(key string, kl *keyLock) {
	<-kl.ch
	l.mu.Lock()
	l.drop(key, kl)
	l.mu.Unlock()
}

func (l *MemoryLocker) drop(key string, kl *keyLock) {
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// RedisLocker takes a Redis lock per key so replicas sharing a RedisStore
// never mutate the same record concurrently.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, retry: 10 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	resource := "approval:" + key
	wait := l.retry
	for {
		token, ok, err := db.LockResource(ctx, l.client, resource, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := db.UnlockResource(ctx, l.client, resource, token); err != nil {
					logger.Warn("Failed to release approval lock", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", gw_errors.ErrLockNotAcquired, key, ctx.Err())
		case <-time.After(wait):
		}
		if wait < 200*time.Millisecond {
			wait *= 2
		}
	}
}
