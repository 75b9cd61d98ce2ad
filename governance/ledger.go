package governance

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"property-governance-backend/models"
)

// ErrStorageConflict is returned by stores when a uniqueness constraint
// rejected a write that raced with another writer.
var ErrStorageConflict = errors.New("storage conflict")

// Ledger records at most one current vote per (proposal, user).
type Ledger struct {
	proposals ProposalStore
	votes     VoteStore
	resolver  *Resolver
	log       logrus.FieldLogger
}

// NewLedger creates a vote ledger.
func NewLedger(proposals ProposalStore, votes VoteStore, resolver *Resolver, log logrus.FieldLogger) *Ledger {
	return &Ledger{
		proposals: proposals,
		votes:     votes,
		resolver:  resolver,
		log:       log,
	}
}

// CastVote creates or overwrites the vote of u on the proposal. All
// preconditions are checked before anything is written.
func (l *Ledger) CastVote(ctx context.Context, proposalID uint64, u *User, choice models.VoteChoice, now time.Time) (*models.Vote, error) {
	if u == nil {
		return nil, ErrUnauthorized
	}
	if !choice.Valid() {
		return nil, ErrInvalidChoice
	}
	p, err := l.openProposal(ctx, proposalID, now)
	if err != nil {
		return nil, err
	}
	if !l.resolver.IsEligible(ctx, u, p) {
		return nil, ErrNotEligible
	}

	vote := &models.Vote{
		ProposalID: proposalID,
		UserID:     u.ID,
		Choice:     choice,
		CastAt:     now,
		UpdatedAt:  now,
	}
	stored, err := l.votes.UpsertVote(ctx, vote)
	if errors.Is(err, ErrStorageConflict) {
		// Lost a race on the unique index: recheck once and retry.
		if _, err := l.openProposal(ctx, proposalID, now); err != nil {
			return nil, err
		}
		stored, err = l.votes.UpsertVote(ctx, vote)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cast vote on proposal %d", proposalID)
	}

	l.log.WithFields(logrus.Fields{
		"proposal_id": proposalID,
		"user_id":     u.ID,
		"choice":      choice,
	}).Debug("vote recorded")
	return stored, nil
}

// VotesFor returns the full vote set of a proposal.
func (l *Ledger) VotesFor(ctx context.Context, proposalID uint64) ([]models.Vote, error) {
	return l.votes.VotesFor(ctx, proposalID)
}

// CountsFor returns raw ballot counts of a proposal.
func (l *Ledger) CountsFor(ctx context.Context, proposalID uint64) (models.VoteCounts, error) {
	return l.votes.CountVotes(ctx, proposalID)
}

// VoteOf returns the current vote of a user, nil when they have not voted.
func (l *Ledger) VoteOf(ctx context.Context, proposalID, userID uint64) (*models.Vote, error) {
	return l.votes.VoteOf(ctx, proposalID, userID)
}

func (l *Ledger) openProposal(ctx context.Context, proposalID uint64, now time.Time) (*models.Proposal, error) {
	p, err := l.proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if CurrentStatus(p, now) != models.StatusOpen {
		return nil, ErrProposalNotOpen
	}
	return p, nil
}
