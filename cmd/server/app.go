package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"property-governance-backend/cache"
	"property-governance-backend/config"
	"property-governance-backend/database"
	"property-governance-backend/governance"
	"property-governance-backend/logging"
	"property-governance-backend/metrics"
	"property-governance-backend/repository"
	"property-governance-backend/routes"
	"property-governance-backend/service"
)

// app holds the long-lived dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	db       *gorm.DB
	redis    *redis.Client
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	limiter  cache.UserLimiter
	service  *service.ProposalServiceImpl
}

// newApp connects storage and builds the service. Redis is optional: when
// it is disabled or unreachable the service runs uncached and without the
// cross-instance tally lock.
func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, log); err != nil {
			database.Close(db, log)
			return nil, err
		}
		if cfg.IsDevelopment() {
			if err := database.SeedRoles(db, log); err != nil {
				log.WithError(err).Warn("seeding roles failed")
			}
		}
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	a.redis, err = cache.NewClient(ctx, cfg.Redis, log)
	switch {
	case errors.Is(err, cache.ErrRedisNotAvailable):
		log.Info("redis disabled, running without cache")
	case err != nil:
		log.WithError(err).Warn("redis unreachable, running without cache")
	}

	store := repository.NewProposalRepositoryImpl(db)
	var (
		votes  governance.VoteStore = store
		locker governance.Locker
	)
	if a.redis != nil {
		locks := cache.NewDistributedLockService(a.redis)
		hot := cache.NewHotCache(a.redis, locks, log.WithField("component", "cache"))
		votes = repository.NewCachedProposalRepository(store, hot, cfg.Redis.CountsTTL, a.metrics, log)
		locker = service.NewRedisTallyLocker(locks, cfg.Redis.LockTTL, log)
	}

	if cfg.RateLimit.Enabled {
		rl := cfg.RateLimit
		if a.redis != nil {
			a.limiter = cache.NewUserRateLimiter(a.redis, "governance_api", rl.GlobalRate, rl.GlobalBurst, rl.UserRate, rl.UserBurst)
		} else {
			a.limiter = cache.NewLocalUserRateLimiter(rl.GlobalRate, rl.GlobalBurst, rl.UserRate, rl.UserBurst)
		}
	}

	a.service = service.NewProposalService(store, votes, repository.NewDirectoryRepository(db), locker, log,
		service.WithMetrics(a.metrics))
	return a, nil
}

func (a *app) routerDeps() routes.Deps {
	d := routes.Deps{
		Config:    a.cfg,
		Log:       a.log,
		DB:        a.db,
		Limiter:   a.limiter,
		Proposals: a.service,
		Metrics:   a.metrics,
		Gatherer:  a.registry,
		Version:   version,
	}
	if a.redis != nil {
		d.Redis = a.redis
	}
	return d
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close redis")
		}
	}
	database.Close(a.db, a.log)
}

func newLogger(cfg *config.Config) *logrus.Logger {
	return logging.New(cfg.Log)
}
