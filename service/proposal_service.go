package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"property-governance-backend/governance"
	"property-governance-backend/metrics"
	"property-governance-backend/models"
)

// CreateProposalInput carries the fields a caller may set on a new proposal.
type CreateProposalInput struct {
	Title         string
	Description   string
	BuildingID    *uint64
	StartTime     time.Time
	EndTime       time.Time
	VotingMethod  models.VotingMethod
	EligibleRoles []string
}

// ProposalService is the entry point for transports and the CLI.
type ProposalService interface {
	CreateProposal(ctx context.Context, actor *governance.User, in CreateProposalInput) (*models.Proposal, error)
	ListProposals(ctx context.Context, viewer *governance.User) ([]models.Proposal, error)
	GetProposal(ctx context.Context, id uint64, viewer *governance.User) (*models.ProposalDetail, error)
	CastVote(ctx context.Context, id uint64, voter *governance.User, choice models.VoteChoice) (*models.Vote, error)
	Tally(ctx context.Context, id uint64, actor *governance.User) (*models.ProposalResult, error)
}

// BuildingLister resolves the buildings a viewer may see proposals of.
type BuildingLister interface {
	UserBuildingIDs(ctx context.Context, userID uint64) ([]uint64, bool, error)
}

// ProposalServiceImpl wires the governance core to storage.
type ProposalServiceImpl struct {
	proposals governance.ProposalStore
	buildings BuildingLister
	resolver  *governance.Resolver
	ledger    *governance.Ledger
	engine    *governance.Engine
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	now       func() time.Time
}

// Option customizes a ProposalServiceImpl.
type Option func(*ProposalServiceImpl)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *ProposalServiceImpl) { s.now = now }
}

// WithMetrics records votes and tallies on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ProposalServiceImpl) { s.metrics = m }
}

// NewProposalService creates the service. locker may be nil.
func NewProposalService(proposals governance.ProposalStore, votes governance.VoteStore, dir governance.Directory, locker governance.Locker, log logrus.FieldLogger, opts ...Option) *ProposalServiceImpl {
	resolver := governance.NewResolver(dir, log.WithField("component", "eligibility"))
	ledger := governance.NewLedger(proposals, votes, resolver, log.WithField("component", "ledger"))
	s := &ProposalServiceImpl{
		proposals: proposals,
		buildings: dir,
		resolver:  resolver,
		ledger:    ledger,
		engine:    governance.NewEngine(proposals, ledger, resolver, dir, locker, log.WithField("component", "tally")),
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProposal validates in and stores a new proposal. Only Admins and
// Managers with access to the target building may create proposals.
func (s *ProposalServiceImpl) CreateProposal(ctx context.Context, actor *governance.User, in CreateProposalInput) (*models.Proposal, error) {
	if actor == nil {
		return nil, governance.ErrUnauthorized
	}
	if !actor.HasRole(models.RoleAdmin, models.RoleManager) {
		return nil, governance.ErrForbidden
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, governance.ValidationError("title is required")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return nil, governance.ValidationError("start_time and end_time are required")
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, governance.ValidationError("end_time must be after start_time")
	}
	if !in.VotingMethod.Valid() {
		return nil, governance.ValidationError("unknown voting method %q", in.VotingMethod)
	}
	roles, err := normalizeRoles(in.EligibleRoles)
	if err != nil {
		return nil, err
	}

	ok, err := s.resolver.CanManage(ctx, actor, in.BuildingID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve building access")
	}
	if !ok {
		return nil, governance.ErrForbidden
	}

	p := &models.Proposal{
		Title:         title,
		Description:   in.Description,
		CreatedBy:     actor.ID,
		BuildingID:    in.BuildingID,
		StartTime:     in.StartTime.UTC(),
		EndTime:       in.EndTime.UTC(),
		VotingMethod:  in.VotingMethod,
		EligibleRoles: roles,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.proposals.CreateProposal(ctx, p); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"proposal_id": p.ID,
		"user_id":     actor.ID,
		"method":      p.VotingMethod,
	}).Info("proposal created")
	return governance.WithStatus(p, s.now()), nil
}

// ListProposals returns the proposals viewer can see, newest first.
func (s *ProposalServiceImpl) ListProposals(ctx context.Context, viewer *governance.User) ([]models.Proposal, error) {
	if viewer == nil {
		return nil, governance.ErrUnauthorized
	}
	var (
		ids []uint64
		all = viewer.IsAdmin()
	)
	if !all {
		var err error
		ids, all, err = s.buildings.UserBuildingIDs(ctx, viewer.ID)
		if err != nil {
			return nil, errors.Wrap(err, "resolve visible buildings")
		}
	}
	list, err := s.proposals.ListProposals(ctx, ids, all)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range list {
		governance.WithStatus(&list[i], now)
	}
	return list, nil
}

// GetProposal returns a proposal with live counts, the viewer's vote and
// eligibility, and the result once tallied. Proposals the viewer may not see
// are reported as not found.
func (s *ProposalServiceImpl) GetProposal(ctx context.Context, id uint64, viewer *governance.User) (*models.ProposalDetail, error) {
	if viewer == nil {
		return nil, governance.ErrUnauthorized
	}
	p, err := s.proposals.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.resolver.CanView(ctx, viewer, p)
	if err != nil {
		return nil, errors.Wrap(err, "resolve visibility")
	}
	if !ok {
		return nil, governance.ErrProposalNotFound
	}

	counts, err := s.ledger.CountsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.ProposalDetail{
		Proposal:     *governance.WithStatus(p, s.now()),
		YesCount:     counts.Yes,
		NoCount:      counts.No,
		AbstainCount: counts.Abstain,
		TotalVotes:   counts.Total(),
		UserEligible: s.resolver.IsEligible(ctx, viewer, p),
	}

	mine, err := s.ledger.VoteOf(ctx, id, viewer.ID)
	if err != nil {
		return nil, err
	}
	if mine != nil {
		choice := mine.Choice
		detail.UserVote = &choice
	}

	if p.Tallied {
		if detail.Result, err = s.proposals.GetResult(ctx, id); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// CastVote records or replaces the voter's ballot.
func (s *ProposalServiceImpl) CastVote(ctx context.Context, id uint64, voter *governance.User, choice models.VoteChoice) (*models.Vote, error) {
	v, err := s.ledger.CastVote(ctx, id, voter, choice, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		method := "unknown"
		if p, err := s.proposals.GetProposal(ctx, id); err == nil {
			method = string(p.VotingMethod)
		}
		s.metrics.VoteCast(method, string(choice))
	}
	return v, nil
}

// Tally computes and stores the result of a closed proposal.
func (s *ProposalServiceImpl) Tally(ctx context.Context, id uint64, actor *governance.User) (*models.ProposalResult, error) {
	res, err := s.engine.Tally(ctx, id, actor, s.now().UTC())
	if err != nil {
		s.metrics.TallyFailed(governance.CodeOf(err))
		entry := s.log.WithField("proposal_id", id).WithError(err)
		if governance.KindOf(err) == governance.KindInternal {
			entry.Error("tally failed")
		} else {
			entry.Debug("tally rejected")
		}
		return nil, err
	}
	if s.metrics != nil {
		if p, err := s.proposals.GetProposal(ctx, id); err == nil {
			s.metrics.Tallied(string(p.VotingMethod), res.Passed)
		}
	}
	return res, nil
}

func normalizeRoles(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, governance.ValidationError("at least one eligible role is required")
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, r := range in {
		r = strings.TrimSpace(r)
		if !knownRole(r) {
			return nil, governance.ValidationError("unknown role %q", r)
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out, nil
}

func knownRole(r string) bool {
	for _, k := range models.KnownRoles {
		if k == r {
			return true
		}
	}
	return false
}
