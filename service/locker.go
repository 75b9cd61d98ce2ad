package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"property-governance-backend/cache"
	"property-governance-backend/governance"
)

// RedisTallyLocker serializes tallies across instances with a redsync lock.
type RedisTallyLocker struct {
	locks  *cache.DistributedLockService
	expiry time.Duration
	log    logrus.FieldLogger
}

var _ governance.Locker = (*RedisTallyLocker)(nil)

func NewRedisTallyLocker(locks *cache.DistributedLockService, expiry time.Duration, log logrus.FieldLogger) *RedisTallyLocker {
	return &RedisTallyLocker{locks: locks, expiry: expiry, log: log}
}

// Acquire takes the named lock. A lock held by another instance is
// reported as governance.ErrTallyInProgress.
func (l *RedisTallyLocker) Acquire(ctx context.Context, name string) (func(), error) {
	mutex, err := l.locks.AcquireLock(ctx, name, l.expiry)
	if errors.Is(err, cache.ErrLockNotAcquired) {
		return nil, governance.ErrTallyInProgress
	}
	if err != nil {
		return nil, err
	}
	return func() {
		if err := l.locks.ReleaseLock(context.Background(), mutex); err != nil {
			l.log.WithField("lock", name).WithError(err).Warn("release tally lock")
		}
	}, nil
}
