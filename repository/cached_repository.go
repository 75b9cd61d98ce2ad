package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"property-governance-backend/cache"
	"property-governance-backend/governance"
	"property-governance-backend/metrics"
	"property-governance-backend/models"
)

// CachedProposalRepository serves live vote counts from Redis and drops them
// whenever a vote is written. Everything else, including the vote set read
// by the tally, goes straight to the database.
type CachedProposalRepository struct {
	*ProposalRepositoryImpl
	cache   *cache.HotCache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

var (
	_ governance.ProposalStore = (*CachedProposalRepository)(nil)
	_ governance.VoteStore     = (*CachedProposalRepository)(nil)
)

func NewCachedProposalRepository(db *ProposalRepositoryImpl, hot *cache.HotCache, ttl time.Duration, m *metrics.Metrics, log logrus.FieldLogger) *CachedProposalRepository {
	return &CachedProposalRepository{
		ProposalRepositoryImpl: db,
		cache:                  hot,
		ttl:                    ttl,
		metrics:                m,
		log:                    log,
	}
}

func countsKey(proposalID uint64) string {
	return fmt.Sprintf("proposal:%d:counts", proposalID)
}

// UpsertVote writes through to the database and invalidates the counts.
func (r *CachedProposalRepository) UpsertVote(ctx context.Context, v *models.Vote) (*models.Vote, error) {
	stored, err := r.ProposalRepositoryImpl.UpsertVote(ctx, v)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Invalidate(ctx, countsKey(v.ProposalID)); err != nil {
		r.log.WithError(err).WithField("proposal_id", v.ProposalID).Warn("failed to invalidate vote counts")
	}
	return stored, nil
}

// CountVotes reads through the cache and falls back to the database when
// Redis misbehaves.
func (r *CachedProposalRepository) CountVotes(ctx context.Context, proposalID uint64) (models.VoteCounts, error) {
	var counts models.VoteCounts
	hit, err := r.cache.GetWithCache(ctx, countsKey(proposalID), r.ttl, &counts, func() (interface{}, error) {
		return r.ProposalRepositoryImpl.CountVotes(ctx, proposalID)
	})
	if err == nil {
		if hit {
			r.metrics.CacheLookup("hit")
		} else {
			r.metrics.CacheLookup("miss")
		}
		return counts, nil
	}
	r.metrics.CacheLookup("error")
	r.log.WithError(err).WithField("proposal_id", proposalID).Debug("vote count cache unavailable")
	return r.ProposalRepositoryImpl.CountVotes(ctx, proposalID)
}
