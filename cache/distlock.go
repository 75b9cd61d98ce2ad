package cache

import (
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DistributedLockService hands out redsync mutexes on one Redis instance.
type DistributedLockService struct {
	rs *redsync.Redsync
}

func NewDistributedLockService(client *redis.Client) *DistributedLockService {
	return &DistributedLockService{rs: redsync.New(goredis.NewPool(client))}
}

// AcquireLock takes lockName for expiry, retrying a few times. It returns
// ErrLockNotAcquired when the lock stays taken.
func (s *DistributedLockService) AcquireLock(ctx context.Context, lockName string, expiry time.Duration) (*redsync.Mutex, error) {
	mutex := s.rs.NewMutex(lockName,
		redsync.WithExpiry(expiry),
		redsync.WithTries(5),
		redsync.WithRetryDelay(50*time.Millisecond),
		redsync.WithDriftFactor(0.01),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, ErrLockNotAcquired
		}
		return nil, errors.Wrapf(err, "lock %s", lockName)
	}
	return mutex, nil
}

// ReleaseLock unlocks mutex. An already expired lock is not an error.
func (s *DistributedLockService) ReleaseLock(ctx context.Context, mutex *redsync.Mutex) error {
	if _, err := mutex.UnlockContext(ctx); err != nil && !errors.Is(err, redsync.ErrLockAlreadyExpired) {
		return errors.Wrapf(err, "unlock %s", mutex.Name())
	}
	return nil
}

// WithLock runs action while holding lockName.
func (s *DistributedLockService) WithLock(ctx context.Context, lockName string, expiry time.Duration, action func() error) error {
	mutex, err := s.AcquireLock(ctx, lockName, expiry)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.ReleaseLock(context.Background(), mutex)
	}()
	return action()
}
