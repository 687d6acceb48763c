package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const namespace = "courier:"

// Redis is a Cache shared between server instances.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// ConnectRedis dials addr and pings it, retrying with backoff up to attempts times.
func ConnectRedis(ctx context.Context, addr string, attempts int) (*redis.Client, error) {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		rdb := redis.NewClient(&redis.Options{Addr: addr, PoolSize: 20})
		if err = rdb.Ping(ctx).Err(); err == nil {
			logrus.WithFields(logrus.Fields{"attempt": attempt, "addr": addr}).Info("connected to redis")
			return rdb, nil
		}
		_ = rdb.Close()
		sleep := time.Second * time.Duration(1<<min(attempt, 4))
		logrus.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "addr": addr}).Warnf("redis unreachable, retrying in %s", sleep)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, fmt.Errorf("redis %s unreachable: %w", addr, err)
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := r.rdb.Get(ctx, namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, namespace+key, raw, r.ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = namespace + k
	}
	return r.rdb.Del(ctx, full...).Err()
}

func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	iter := r.rdb.Scan(ctx, 0, namespace+prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

// RedisLocker serialises work on one key across processes.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl}
}

// Lock blocks (with linear backoff, bounded by ctx and the lock TTL) until key
// is held. The returned func releases it.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, namespace+"lock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), int(l.ttl/(50*time.Millisecond))),
	})
	if err != nil {
		return nil, err
	}
	return func() {
		// ctx may already be done by the time the caller unlocks.
		_ = lock.Release(context.Background())
	}, nil
}
