package governance

import (
	"context"

	"property-governance-backend/models"
)

// User is the authenticated caller. A nil *User is anonymous.
type User struct {
	ID    uint64
	Roles []string
}

// HasRole reports whether u holds any of the wanted roles.
func (u *User) HasRole(wanted ...string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		for _, w := range wanted {
			if r == w {
				return true
			}
		}
	}
	return false
}

// IsAdmin reports whether u is a platform administrator.
func (u *User) IsAdmin() bool {
	return u.HasRole(models.RoleAdmin)
}

// ProposalStore persists proposals and their results.
type ProposalStore interface {
	CreateProposal(ctx context.Context, p *models.Proposal) error
	GetProposal(ctx context.Context, id uint64) (*models.Proposal, error)
	// ListProposals returns proposals newest first. When all is false only
	// platform-wide proposals and those of buildingIDs are returned.
	ListProposals(ctx context.Context, buildingIDs []uint64, all bool) ([]models.Proposal, error)
	GetResult(ctx context.Context, proposalID uint64) (*models.ProposalResult, error)
	// FinalizeTally flips the tallied flag and inserts the result in one
	// transaction. It returns ErrAlreadyTallied when another writer won.
	FinalizeTally(ctx context.Context, result *models.ProposalResult) error
}

// VoteStore is the storage behind the vote ledger.
type VoteStore interface {
	// UpsertVote inserts or overwrites the vote of (ProposalID, UserID) in a
	// single statement and returns the stored row.
	UpsertVote(ctx context.Context, v *models.Vote) (*models.Vote, error)
	VotesFor(ctx context.Context, proposalID uint64) ([]models.Vote, error)
	VoteOf(ctx context.Context, proposalID, userID uint64) (*models.Vote, error)
	CountVotes(ctx context.Context, proposalID uint64) (models.VoteCounts, error)
}

// Directory resolves building membership and apartment ownership.
type Directory interface {
	// UserBuildingIDs returns the buildings the user owns, rents (active) or
	// manages in. all is true for platform administrators.
	UserBuildingIDs(ctx context.Context, userID uint64) (ids []uint64, all bool, err error)
	// ApartmentsOwnedBy returns the non-deleted apartments owned by the user,
	// restricted to buildingID when it is set.
	ApartmentsOwnedBy(ctx context.Context, userID uint64, buildingID *uint64) ([]models.OwnedApartment, error)
}
