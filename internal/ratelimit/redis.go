package ratelimit

import (
	"context"
	"time"

	"diagnostico_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "diagnostico:ratelimit:"

// Redis is a fixed-window limiter shared by every instance pointing at the
// same Redis. It fails open: when Redis is unreachable the request is allowed.
type Redis struct {
	client *redis.Client
	max    int64
	period time.Duration
	log    *logger.Logger
}

// NewRedis allows max attempts per key in each period.
func NewRedis(client *redis.Client, max int, period time.Duration, log *logger.Logger) *Redis {
	return &Redis{client: client, max: int64(max), period: period, log: log}
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

func (r *Redis) Allow(ctx context.Context, key string) bool {
	k := keyPrefix + key

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		r.log.WithContext(ctx).Warn("rate limit store unavailable, allowing request", "error", err)
		return true
	}

	// Only the first hit of a window sets the expiry, so the window does not
	// slide. A key left without a TTL is repaired here too.
	if ttl.Val() < 0 {
		if err := r.client.PExpire(ctx, k, r.period).Err(); err != nil {
			r.log.WithContext(ctx).Warn("rate limit expiry not set", "error", err)
		}
	}

	return incr.Val() <= r.max
}

// Ping checks the Redis connection for readiness probes.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
