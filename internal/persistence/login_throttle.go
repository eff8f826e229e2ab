package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLoginThrottle counts failed logins per username in Redis. The counter
// expires with the lockout window, so a lockout clears itself without a
// background sweeper.
type RedisLoginThrottle struct {
	client    *redis.Client
	threshold int
	window    time.Duration
}

// NewRedisLoginThrottle builds a throttle backed by the shared client.
func NewRedisLoginThrottle(client *redis.Client, threshold int, window time.Duration) *RedisLoginThrottle {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RedisLoginThrottle{client: client, threshold: threshold, window: window}
}

func (t *RedisLoginThrottle) key(username string) string {
	return fmt.Sprintf("login_failures:%s", username)
}

// RegisterFailure records one failed attempt and starts the window on the
// first failure.
func (t *RedisLoginThrottle) RegisterFailure(ctx context.Context, username string) error {
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, t.key(username))
	pipe.Expire(ctx, t.key(username), t.window)
	_, err := pipe.Exec(ctx)
	return err
}

// IsLocked reports whether the account has reached the failure threshold
// within the current window, and the seconds until the window expires.
func (t *RedisLoginThrottle) IsLocked(ctx context.Context, username string) (bool, int, error) {
	count, err := t.client.Get(ctx, t.key(username)).Int()
	if err == redis.Nil {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	if count < t.threshold {
		return false, 0, nil
	}
	ttl, err := t.client.TTL(ctx, t.key(username)).Result()
	if err != nil {
		return true, int(t.window.Seconds()), nil
	}
	return true, int(ttl.Seconds()), nil
}

// Reset clears the failure counter after a successful login.
func (t *RedisLoginThrottle) Reset(ctx context.Context, username string) error {
	return t.client.Del(ctx, t.key(username)).Err()
}
