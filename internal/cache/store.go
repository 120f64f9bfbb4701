package cache

import (
	"context"
	"time"
)

// Store is a small key/value contract shared by the rate limiter and the
// guest session. A zero ttl stores the value without expiry.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
