package progress

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisLedger keeps the ledger document under a single Redis key, so the
// live pipeline can run from more than one host.
type RedisLedger struct {
	rdb *redis.Client
	key string
}

// NewRedisLedger connects to Redis and verifies the connection.
func NewRedisLedger(ctx context.Context, addr, key string) (*RedisLedger, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, eris.Wrapf(err, "progress: connect redis %s", addr)
	}
	return &RedisLedger{rdb: rdb, key: key}, nil
}

func (r *RedisLedger) Read(ctx context.Context) (time.Time, []string, error) {
	raw, err := r.rdb.Get(ctx, r.key).Bytes()
	if err == redis.Nil {
		return truncate(time.Now().UTC()), nil, nil
	}
	if err != nil {
		return time.Time{}, nil, eris.Wrapf(err, "progress: read %s", r.key)
	}
	return decode(raw)
}

func (r *RedisLedger) Write(ctx context.Context, date time.Time, citations []string) error {
	raw, err := encode(date, citations)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return eris.Wrapf(err, "progress: write %s", r.key)
	}
	return nil
}

func (r *RedisLedger) Close() error {
	return r.rdb.Close()
}
