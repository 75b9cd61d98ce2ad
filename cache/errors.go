package cache

import "github.com/pkg/errors"

var (
	// ErrRedisNotAvailable is returned when caching is disabled or the
	// client is not connected.
	ErrRedisNotAvailable = errors.New("redis not available")

	// ErrLockNotAcquired is returned when a distributed lock is held by
	// someone else after all retries.
	ErrLockNotAcquired = errors.New("distributed lock not acquired")
)
