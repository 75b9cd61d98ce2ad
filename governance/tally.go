package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"property-governance-backend/models"
)

// Locker serializes tallies of the same proposal across instances.
// Acquire returns ErrTallyInProgress when the lock is held elsewhere.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// Engine turns the frozen vote set of a closed proposal into its one and
// only ProposalResult.
type Engine struct {
	proposals ProposalStore
	ledger    *Ledger
	resolver  *Resolver
	owners    OwnershipProvider
	locker    Locker
	log       logrus.FieldLogger
}

// NewEngine creates a tally engine. locker may be nil, the storage
// transaction alone guarantees a single result.
func NewEngine(proposals ProposalStore, ledger *Ledger, resolver *Resolver, owners OwnershipProvider, locker Locker, log logrus.FieldLogger) *Engine {
	return &Engine{
		proposals: proposals,
		ledger:    ledger,
		resolver:  resolver,
		owners:    owners,
		locker:    locker,
		log:       log,
	}
}

// Tally computes, persists and returns the result of a closed proposal and
// marks it Tallied.
func (e *Engine) Tally(ctx context.Context, proposalID uint64, actor *User, now time.Time) (*models.ProposalResult, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if !actor.HasRole(models.RoleAdmin, models.RoleManager) {
		return nil, ErrForbidden
	}
	p, err := e.proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	ok, err := e.resolver.CanManage(ctx, actor, p.BuildingID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve tally permission")
	}
	if !ok {
		return nil, ErrForbidden
	}

	if e.locker != nil {
		release, err := e.locker.Acquire(ctx, fmt.Sprintf("tally:proposal:%d", proposalID))
		if err != nil {
			return nil, err
		}
		defer release()
		// Another instance may have finished while we waited.
		if p, err = e.proposals.GetProposal(ctx, proposalID); err != nil {
			return nil, err
		}
	}

	return e.tally(ctx, p, now)
}

func (e *Engine) tally(ctx context.Context, p *models.Proposal, now time.Time) (*models.ProposalResult, error) {
	switch CurrentStatus(p, now) {
	case models.StatusTallied:
		return nil, ErrAlreadyTallied
	case models.StatusClosed:
	default:
		return nil, ErrNotClosedYet
	}
	existing, err := e.proposals.GetResult(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyTallied
	}

	policy, err := NewPolicy(p.VotingMethod, e.owners)
	if err != nil {
		return nil, err
	}
	votes, err := e.ledger.VotesFor(ctx, p.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load votes")
	}
	w, err := policy.Weigh(ctx, votes, p)
	if err != nil {
		return nil, errors.Wrapf(err, "weigh proposal %d", p.ID)
	}

	result := &models.ProposalResult{
		ProposalID:           p.ID,
		Passed:               policy.Decide(w),
		YesWeight:            w.Yes,
		NoWeight:             w.No,
		AbstainWeight:        w.Abstain,
		TotalWeight:          w.Total,
		TalliedAt:            now,
		MethodAppliedVersion: policy.Version(),
	}
	err = e.proposals.FinalizeTally(ctx, result)
	if errors.Is(err, ErrStorageConflict) {
		existing, rerr := e.proposals.GetResult(ctx, p.ID)
		if rerr == nil && existing != nil {
			return nil, ErrAlreadyTallied
		}
	}
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"proposal_id": p.ID,
		"method":      p.VotingMethod,
		"version":     result.MethodAppliedVersion,
		"votes":       len(votes),
		"passed":      result.Passed,
	}).Info("proposal tallied")
	return result, nil
}
