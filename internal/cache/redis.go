package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "backdrops:id:"
	redisDialTimeout = 5 * time.Second
	redisCmdTimeout  = 2 * time.Second
)

func init() {
	Register("redis", openRedis)
}

// redisCache lets several instances share resolved identifiers. Entries
// expire server side and Size is ignored.
type redisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger Logger
}

func openRedis(opts Options) (Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddress,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", opts.RedisAddress, err)
	}
	return &redisCache{rdb: rdb, ttl: opts.TTL, logger: opts.Logger}, nil
}

func (r *redisCache) report(op string, err error) {
	if r.logger != nil && err != nil {
		r.logger.Error("redis cache "+op+" failed", err)
	}
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, redisCmdTimeout)
	defer cancel()
	value, err := r.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false
	case err != nil:
		r.report("get", err)
		return nil, false
	}
	return value, true
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte) {
	ctx, cancel := context.WithTimeout(ctx, redisCmdTimeout)
	defer cancel()
	r.report("set", r.rdb.Set(ctx, redisKeyPrefix+key, value, r.ttl).Err())
}

func (r *redisCache) Contains(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, redisCmdTimeout)
	defer cancel()
	n, err := r.rdb.Exists(ctx, redisKeyPrefix+key).Result()
	r.report("exists", err)
	return err == nil && n > 0
}

// Len walks the key prefix with SCAN.
func (r *redisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), redisCmdTimeout)
	defer cancel()
	n := 0
	it := r.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 500).Iterator()
	for it.Next(ctx) {
		n++
	}
	if err := it.Err(); err != nil {
		r.report("scan", err)
		return 0
	}
	return n
}

func (r *redisCache) Close() error {
	return r.rdb.Close()
}
