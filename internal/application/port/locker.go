package port

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from Locker
type UnlockFunc func(ctx context.Context) error

// Locker serialises writers across processes sharing one store.
// Lock blocks until the key is held, ctx is done, or the backend fails.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
