// Package lock provides TTL-bounded lock implementations behind the
// ports.Locker interface: in-memory for single-instance deployments and
// Redis-backed for fleets.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/wmweemba/ioss-compliance-reporter/internal/ports"
)

// MemoryLocker implements Locker with process-local state. Locks expire
// lazily: an expired entry is reclaimed by the next Acquire on the same key.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewMemoryLocker creates a new in-memory locker
func NewMemoryLocker() ports.Locker {
	return &MemoryLocker{held: make(map[string]time.Time)}
}

// Acquire takes the named lock for at most ttl
func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.held[key]; ok && time.Now().Before(expiry) {
		return false, nil
	}

	l.held[key] = time.Now().Add(ttl)
	return true, nil
}

// Release frees the named lock
func (l *MemoryLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, key)
	return nil
}
