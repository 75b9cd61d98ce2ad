package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// HotCache is a read-through JSON cache. Concurrent misses of the same key
// are collapsed behind a distributed lock when one is configured.
type HotCache struct {
	client RedisClient
	locks  *DistributedLockService
	log    logrus.FieldLogger
}

// NewHotCache creates a cache on client. locks may be nil.
func NewHotCache(client RedisClient, locks *DistributedLockService, log logrus.FieldLogger) *HotCache {
	return &HotCache{
		client: client,
		locks:  locks,
		log:    log,
	}
}

// GetWithCache decodes the cached value of key into dest. On a miss it calls
// loader, stores the result for about ttl and decodes it into dest. hit
// reports whether the value came from Redis.
func (c *HotCache) GetWithCache(ctx context.Context, key string, ttl time.Duration, dest interface{}, loader func() (interface{}, error)) (hit bool, err error) {
	if c == nil || c.client == nil {
		return false, ErrRedisNotAvailable
	}

	found, err := c.lookup(ctx, key, dest)
	if err != nil {
		return false, err
	}
	if found {
		return true, nil
	}

	fill := func() error {
		// Someone else may have filled it while we waited for the lock.
		found, err := c.lookup(ctx, key, dest)
		if err != nil || found {
			hit = found
			return err
		}
		loaded, err := loader()
		if err != nil {
			return err
		}
		data, err := json.Marshal(loaded)
		if err != nil {
			return errors.Wrapf(err, "encode %s", key)
		}
		if err := c.client.Set(ctx, key, data, jitter(ttl)).Err(); err != nil {
			c.log.WithError(err).WithField("key", key).Warn("cache write failed")
		}
		return json.Unmarshal(data, dest)
	}

	if c.locks == nil {
		err = fill()
		return hit, err
	}
	err = c.locks.WithLock(ctx, fmt.Sprintf("cache_lock:%s", key), 5*time.Second, fill)
	if errors.Is(err, ErrLockNotAcquired) {
		// Lock contention: serve from the source without caching.
		loaded, lerr := loader()
		if lerr != nil {
			return false, lerr
		}
		data, merr := json.Marshal(loaded)
		if merr != nil {
			return false, errors.Wrapf(merr, "encode %s", key)
		}
		return false, json.Unmarshal(data, dest)
	}
	return hit, err
}

// Invalidate drops keys from the cache.
func (c *HotCache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil {
		return ErrRedisNotAvailable
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *HotCache) lookup(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "get %s", key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("dropping undecodable cache entry")
		return false, nil
	}
	return true, nil
}

// jitter spreads expirations so that keys written together do not expire
// together.
func jitter(ttl time.Duration) time.Duration {
	spread := int64(ttl / 10)
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(spread))
}
