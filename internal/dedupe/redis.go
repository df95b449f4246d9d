package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "article_seen:"

// Redis is an Index backed by a shared Redis instance, so the seen set
// survives restarts and is shared between concurrently deployed workers.
// Expiry is delegated to Redis key TTLs.
type Redis struct {
	client *redis.Client
	window time.Duration
}

// NewRedis connects an index to the given address. The window becomes the
// per-key TTL.
func NewRedis(addr string, window time.Duration) *Redis {
	if window <= 0 {
		window = time.Hour
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		window: window,
	}
}

func (r *Redis) Seen(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (r *Redis) Mark(ctx context.Context, key string) error {
	// SET refreshes the TTL on re-mark, which keeps the operation idempotent
	if err := r.client.Set(ctx, keyPrefix+key, 1, r.window).Err(); err != nil {
		return fmt.Errorf("dedupe mark %s: %w", key, err)
	}
	return nil
}

// Ping verifies the backing connection, used by the status endpoint.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
