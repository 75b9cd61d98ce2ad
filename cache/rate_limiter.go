package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter decides whether one more request may pass.
type RateLimiter interface {
	Allow(ctx context.Context) (bool, error)
}

// UserLimiter combines a global limit with a per-user limit.
type UserLimiter interface {
	AllowUser(ctx context.Context, userID string) (bool, error)
}

// tokenBucketScript refills rate tokens per second up to burst and takes one.
const tokenBucketScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])
local period = 1

local tokens_key = key .. ":tokens"
local timestamp_key = key .. ":ts"

local tokens = tonumber(redis.call("get", tokens_key) or burst)
local last_update = tonumber(redis.call("get", timestamp_key) or 0)

local elapsed = math.max(0, now - last_update)
local new_tokens = math.min(burst, tokens + elapsed * rate)

if new_tokens < 1 then
	return 0
end

new_tokens = new_tokens - 1

redis.call("setex", tokens_key, period * 2, new_tokens)
redis.call("setex", timestamp_key, period * 2, now)

return 1
`

// TokenBucketRateLimiter is a token bucket kept in Redis so that all
// instances share it.
type TokenBucketRateLimiter struct {
	client RedisClient
	key    string
	rate   int
	burst  int
	now    func() time.Time
}

func NewTokenBucketRateLimiter(client RedisClient, key string, rate, burst int) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		client: client,
		key:    fmt.Sprintf("rate_limit:%s", key),
		rate:   rate,
		burst:  burst,
		now:    time.Now,
	}
}

func (l *TokenBucketRateLimiter) Allow(ctx context.Context) (bool, error) {
	if l.client == nil {
		return false, ErrRedisNotAvailable
	}
	args := []interface{}{l.now().Unix(), l.rate, l.burst}
	result, err := l.client.Eval(ctx, tokenBucketScript, []string{l.key}, args...).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// UserRateLimiter checks the global bucket first and then the bucket of the
// user.
type UserRateLimiter struct {
	client    RedisClient
	global    RateLimiter
	keyPrefix string
	rate      int
	burst     int

	mu       sync.Mutex
	limiters map[string]RateLimiter
}

func NewUserRateLimiter(client RedisClient, keyPrefix string, globalRate, globalBurst, userRate, userBurst int) *UserRateLimiter {
	return &UserRateLimiter{
		client:    client,
		global:    NewTokenBucketRateLimiter(client, keyPrefix+":global", globalRate, globalBurst),
		keyPrefix: keyPrefix,
		rate:      userRate,
		burst:     userBurst,
		limiters:  make(map[string]RateLimiter),
	}
}

func (l *UserRateLimiter) userLimiter(userID string) RateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[userID]; ok {
		return limiter
	}
	limiter := NewTokenBucketRateLimiter(l.client, l.keyPrefix+":user:"+userID, l.rate, l.burst)
	l.limiters[userID] = limiter
	return limiter
}

func (l *UserRateLimiter) AllowUser(ctx context.Context, userID string) (bool, error) {
	allowed, err := l.global.Allow(ctx)
	if err != nil || !allowed {
		return allowed, err
	}
	return l.userLimiter(userID).Allow(ctx)
}

// LocalUserRateLimiter is the in-process fallback used when Redis is
// disabled. Limits then apply per instance.
type LocalUserRateLimiter struct {
	global *rate.Limiter
	rate   rate.Limit
	burst  int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewLocalUserRateLimiter(globalRate, globalBurst, userRate, userBurst int) *LocalUserRateLimiter {
	return &LocalUserRateLimiter{
		global:   rate.NewLimiter(rate.Limit(globalRate), globalBurst),
		rate:     rate.Limit(userRate),
		burst:    userBurst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *LocalUserRateLimiter) AllowUser(_ context.Context, userID string) (bool, error) {
	if !l.global.Allow() {
		return false, nil
	}
	l.mu.Lock()
	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[userID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow(), nil
}
