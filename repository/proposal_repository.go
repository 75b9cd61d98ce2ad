package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"property-governance-backend/governance"
	"property-governance-backend/models"
)

// ProposalRepositoryImpl stores proposals, votes and results with gorm.
type ProposalRepositoryImpl struct {
	db *gorm.DB
}

var (
	_ governance.ProposalStore = (*ProposalRepositoryImpl)(nil)
	_ governance.VoteStore     = (*ProposalRepositoryImpl)(nil)
)

// NewProposalRepositoryImpl creates a repository on db. db should be opened
// with TranslateError so that unique violations surface as
// gorm.ErrDuplicatedKey.
func NewProposalRepositoryImpl(db *gorm.DB) *ProposalRepositoryImpl {
	return &ProposalRepositoryImpl{db: db}
}

// CreateProposal inserts p and fills its ID.
func (r *ProposalRepositoryImpl) CreateProposal(ctx context.Context, p *models.Proposal) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return errors.Wrap(err, "insert proposal")
	}
	return nil
}

// GetProposal returns governance.ErrProposalNotFound for unknown ids.
func (r *ProposalRepositoryImpl) GetProposal(ctx context.Context, id uint64) (*models.Proposal, error) {
	var p models.Proposal
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, governance.ErrProposalNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load proposal %d", id)
	}
	return &p, nil
}

// ListProposals returns proposals newest first.
func (r *ProposalRepositoryImpl) ListProposals(ctx context.Context, buildingIDs []uint64, all bool) ([]models.Proposal, error) {
	q := r.db.WithContext(ctx).Order("id DESC")
	if !all {
		if len(buildingIDs) == 0 {
			q = q.Where("building_id IS NULL")
		} else {
			q = q.Where("building_id IS NULL OR building_id IN ?", buildingIDs)
		}
	}
	proposals := []models.Proposal{}
	if err := q.Find(&proposals).Error; err != nil {
		return nil, errors.Wrap(err, "list proposals")
	}
	return proposals, nil
}

// GetResult returns nil without error when the proposal has no result yet.
func (r *ProposalRepositoryImpl) GetResult(ctx context.Context, proposalID uint64) (*models.ProposalResult, error) {
	var res models.ProposalResult
	err := r.db.WithContext(ctx).Where("proposal_id = ?", proposalID).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load result of proposal %d", proposalID)
	}
	return &res, nil
}

// FinalizeTally marks the proposal tallied and inserts its result in one
// transaction. The conditional update lets exactly one concurrent caller
// through; the unique index on proposal_id backs it up.
func (r *ProposalRepositoryImpl) FinalizeTally(ctx context.Context, result *models.ProposalResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Proposal{}).
			Where("id = ? AND tallied = ?", result.ProposalID, false).
			Update("tallied", true)
		if res.Error != nil {
			return errors.Wrap(res.Error, "flip tallied flag")
		}
		if res.RowsAffected == 0 {
			return governance.ErrAlreadyTallied
		}
		if err := tx.Create(result).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return governance.ErrStorageConflict
			}
			return errors.Wrap(err, "insert result")
		}
		return nil
	})
}

// UpsertVote writes the vote with INSERT .. ON CONFLICT DO UPDATE so that
// concurrent casts of the same user never produce two rows. cast_at keeps
// the time of the first cast.
func (r *ProposalRepositoryImpl) UpsertVote(ctx context.Context, v *models.Vote) (*models.Vote, error) {
	row := *v
	row.ID = 0
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_id"},
			{Name: "user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"choice",
			"updated_at",
		}),
	}
	if err := r.db.WithContext(ctx).Clauses(onConflict).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, governance.ErrStorageConflict
		}
		return nil, errors.Wrap(err, "upsert vote")
	}
	stored, err := r.VoteOf(ctx, v.ProposalID, v.UserID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.Errorf("vote of user %d on proposal %d missing after upsert", v.UserID, v.ProposalID)
	}
	return stored, nil
}

// VotesFor returns every vote of the proposal in insertion order.
func (r *ProposalRepositoryImpl) VotesFor(ctx context.Context, proposalID uint64) ([]models.Vote, error) {
	votes := []models.Vote{}
	if err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("id ASC").
		Find(&votes).Error; err != nil {
		return nil, errors.Wrapf(err, "load votes of proposal %d", proposalID)
	}
	return votes, nil
}

// VoteOf returns nil without error when the user has not voted.
func (r *ProposalRepositoryImpl) VoteOf(ctx context.Context, proposalID, userID uint64) (*models.Vote, error) {
	var v models.Vote
	err := r.db.WithContext(ctx).
		Where("proposal_id = ? AND user_id = ?", proposalID, userID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load vote")
	}
	return &v, nil
}

// CountVotes returns raw ballot counts grouped by choice.
func (r *ProposalRepositoryImpl) CountVotes(ctx context.Context, proposalID uint64) (models.VoteCounts, error) {
	var rows []struct {
		Choice models.VoteChoice
		N      int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("choice, COUNT(*) AS n").
		Where("proposal_id = ?", proposalID).
		Group("choice").
		Scan(&rows).Error; err != nil {
		return models.VoteCounts{}, errors.Wrapf(err, "count votes of proposal %d", proposalID)
	}
	var counts models.VoteCounts
	for _, row := range rows {
		switch row.Choice {
		case models.ChoiceYes:
			counts.Yes = row.N
		case models.ChoiceNo:
			counts.No = row.N
		case models.ChoiceAbstain:
			counts.Abstain = row.N
		}
	}
	return counts, nil
}
