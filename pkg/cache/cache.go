package cache

import (
	"context"
	"time"
)

// Cache is a small string cache abstraction used to serve dashboard summary
// reads without a Firestore round trip.
type Cache interface {
	// Get returns the cached value, or "" with a nil error on a miss.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}
