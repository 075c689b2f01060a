package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PrincipalLockKey builds the redis key serializing override writes and
// lifecycle transitions for one principal. Cross-tenant operations never
// share a lock.
func PrincipalLockKey(tenantID, principalID string) string {
	return fmt.Sprintf("lock:tenant:%s:principal:%s", tenantID, principalID)
}

// KeyedLock provides short-lived mutual exclusion leases backed by Redis.
type KeyedLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewKeyedLock constructs a KeyedLock with the given lease duration.
func NewKeyedLock(client *redis.Client, ttl time.Duration) *KeyedLock {
	return &KeyedLock{client: client, ttl: ttl}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquire takes the lease for key. Returns ErrLockBusy when another holder
// owns it and ErrStoreUnavailable when redis cannot be reached.
func (l *KeyedLock) Acquire(ctx context.Context, key string) (string, error) {
	holder := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, holder, l.ttl).Result()
	if err != nil {
		return "", ErrStoreUnavailable
	}
	if !ok {
		return "", ErrLockBusy
	}
	return holder, nil
}

// Release gives the lease back. Only the holder token that acquired it can
// release it; an expired lease is a silent no-op.
func (l *KeyedLock) Release(ctx context.Context, key, holder string) error {
	return releaseScript.Run(ctx, l.client, []string{key}, holder).Err()
}

// WithLease runs fn while holding the lease for key.
func (l *KeyedLock) WithLease(ctx context.Context, key string, fn func(context.Context) error) error {
	holder, err := l.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		_ = l.Release(ctx, key, holder)
	}()
	return fn(ctx)
}
