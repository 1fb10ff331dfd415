// Package keylock serializes work on a key, either inside one process or
// across processes sharing a Redis instance.
package keylock

import (
	"context"
	"errors"
	"time"
)

// ErrLockHeld is returned when the key could not be locked before ctx ended.
var ErrLockHeld = errors.New("lock held by another holder")

// Locker blocks until key is held or ctx is done. The returned release func is
// safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
