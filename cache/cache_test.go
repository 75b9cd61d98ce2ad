package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps strings in a map and answers Eval with a scripted value.
type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	evalRes []int64
	evals   []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evals = append(f.evals, keys[0])
	if len(f.evalRes) == 0 {
		return redis.NewCmdResult(int64(1), nil)
	}
	res := f.evalRes[0]
	f.evalRes = f.evalRes[1:]
	return redis.NewCmdResult(res, nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

type counts struct {
	Yes int64 `json:"yes"`
	No  int64 `json:"no"`
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestHotCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	c := NewHotCache(rdb, nil, quietLogger())

	loads := 0
	loader := func() (interface{}, error) {
		loads++
		return counts{Yes: 2, No: 1}, nil
	}

	var first counts
	hit, err := c.GetWithCache(ctx, "proposal:1:counts", time.Minute, &first, loader)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, counts{Yes: 2, No: 1}, first)

	var second counts
	hit, err = c.GetWithCache(ctx, "proposal:1:counts", time.Minute, &second, loader)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)

	require.NoError(t, c.Invalidate(ctx, "proposal:1:counts"))

	var third counts
	hit, err = c.GetWithCache(ctx, "proposal:1:counts", time.Minute, &third, loader)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, loads)
}

func TestHotCacheErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		var c *HotCache
		var dest counts
		_, err := c.GetWithCache(ctx, "k", time.Minute, &dest, nil)
		assert.ErrorIs(t, err, ErrRedisNotAvailable)
		assert.ErrorIs(t, c.Invalidate(ctx, "k"), ErrRedisNotAvailable)
	})

	t.Run("redis failure is returned", func(t *testing.T) {
		rdb := newFakeRedis()
		rdb.getErr = errors.New("connection refused")
		c := NewHotCache(rdb, nil, quietLogger())
		var dest counts
		_, err := c.GetWithCache(ctx, "k", time.Minute, &dest, func() (interface{}, error) {
			t.Fatal("loader must not run when redis fails")
			return nil, nil
		})
		assert.Error(t, err)
	})

	t.Run("loader failure is not cached", func(t *testing.T) {
		rdb := newFakeRedis()
		c := NewHotCache(rdb, nil, quietLogger())
		var dest counts
		_, err := c.GetWithCache(ctx, "k", time.Minute, &dest, func() (interface{}, error) {
			return nil, errors.New("db down")
		})
		assert.EqualError(t, err, "db down")
		assert.Empty(t, rdb.data)
	})

	t.Run("corrupt entry is reloaded", func(t *testing.T) {
		rdb := newFakeRedis()
		rdb.data["k"] = "{not json"
		c := NewHotCache(rdb, nil, quietLogger())
		var dest counts
		hit, err := c.GetWithCache(ctx, "k", time.Minute, &dest, func() (interface{}, error) {
			return counts{Yes: 1}, nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, int64(1), dest.Yes)
	})
}

func TestJitter(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := jitter(time.Minute)
		assert.GreaterOrEqual(t, d, time.Minute)
		assert.Less(t, d, time.Minute+6*time.Second)
	}
	assert.Equal(t, time.Duration(5), jitter(5))
}

func TestTokenBucketRateLimiter(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	rdb.evalRes = []int64{1, 0}
	l := NewTokenBucketRateLimiter(rdb, "api", 10, 20)

	ok, err := l.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"rate_limit:api", "rate_limit:api"}, rdb.evals)

	_, err = NewTokenBucketRateLimiter(nil, "api", 1, 1).Allow(ctx)
	assert.ErrorIs(t, err, ErrRedisNotAvailable)
}

func TestUserRateLimiter(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	l := NewUserRateLimiter(rdb, "user_api", 100, 200, 10, 20)

	ok, err := l.AllowUser(ctx, "7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"rate_limit:user_api:global", "rate_limit:user_api:user:7"}, rdb.evals)

	// Global bucket empty: the user bucket is not consulted.
	rdb.evals = nil
	rdb.evalRes = []int64{0}
	ok, err = l.AllowUser(ctx, "7")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"rate_limit:user_api:global"}, rdb.evals)
}

func TestLocalUserRateLimiter(t *testing.T) {
	ctx := context.Background()
	l := NewLocalUserRateLimiter(1000, 1000, 1, 2)

	for i := 0; i < 2; i++ {
		ok, err := l.AllowUser(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.AllowUser(ctx, "alice")
	assert.False(t, ok, "burst of two exhausted")

	ok, _ = l.AllowUser(ctx, "bob")
	assert.True(t, ok, "buckets are per user")
}
