package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Redis is a Store backed by a Redis instance, durable across pipeline
// invocations. Backend errors are logged and treated as misses.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, addr string, db int, prefix string, ttl time.Duration) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, eris.Wrapf(err, "cache: ping redis %s", addr)
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, citation string) ([]byte, bool) {
	val, err := r.rdb.Get(ctx, r.prefix+citation).Bytes()
	if err != nil {
		if err != redis.Nil {
			zap.L().Warn("cache: redis get failed, treating as miss",
				zap.String("citation", citation),
				zap.Error(err),
			)
		}
		return nil, false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, citation string, value []byte) error {
	if err := r.rdb.Set(ctx, r.prefix+citation, value, r.ttl).Err(); err != nil {
		return eris.Wrapf(err, "cache: redis set %s", citation)
	}
	return nil
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
