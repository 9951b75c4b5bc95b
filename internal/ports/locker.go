package ports

import (
	"context"
	"time"
)

// Locker is a TTL-bounded mutual-exclusion primitive. The sync engine uses
// it to keep one sync per connection across instances; the authorization
// handshake uses it to burn state nonces so a callback is consumed exactly
// once.
type Locker interface {
	// Acquire takes the named lock for at most ttl. It returns false
	// without error when another holder already has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
