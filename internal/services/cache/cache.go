package cache

import (
	"context"
	"time"
)

// BytesCache stores raw bytes with a TTL. Implementations must be safe for
// concurrent use.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
