package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"property-governance-backend/config"
)

// NewClient connects to Redis and verifies the connection with a PING.
// It returns ErrRedisNotAvailable when Redis is disabled in cfg.
func NewClient(ctx context.Context, cfg config.RedisConfig, log logrus.FieldLogger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, ErrRedisNotAvailable
	}

	log.WithField("addr", cfg.Addr).Info("connecting to redis")
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 3 * time.Second,
		ReadTimeout: 3 * time.Second,
		PoolSize:    10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", cfg.Addr)
	}
	return client, nil
}

// Ping reports whether client answers. A nil client is reported as
// unavailable.
func Ping(ctx context.Context, client RedisClient) error {
	if client == nil {
		return ErrRedisNotAvailable
	}
	return client.Ping(ctx).Err()
}
