package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wmweemba/ioss-compliance-reporter/internal/ports"
)

// RedisLockerConfig holds Redis connection parameters
type RedisLockerConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisLocker implements Locker on Redis so mutual exclusion holds across
// instances. SETNX with a TTL gives atomic acquire-with-expiry; a crashed
// holder's lock falls off on its own.
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisLocker creates a new Redis-backed locker
func NewRedisLocker(cfg RedisLockerConfig) (ports.Locker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisLocker{
		client:    client,
		keyPrefix: "ioss:lock:",
	}, nil
}

// Acquire takes the named lock for at most ttl
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// Release frees the named lock
func (l *RedisLocker) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}
