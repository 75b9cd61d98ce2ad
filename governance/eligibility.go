package governance

import (
	"context"

	"github.com/sirupsen/logrus"

	"property-governance-backend/models"
)

// Resolver decides who may vote on and who may see a proposal.
type Resolver struct {
	dir Directory
	log logrus.FieldLogger
}

// NewResolver creates a Resolver backed by dir.
func NewResolver(dir Directory, log logrus.FieldLogger) *Resolver {
	return &Resolver{dir: dir, log: log}
}

// IsEligible reports whether u may cast a vote on p. Administrative roles
// grant no vote unless they are listed in the proposal's eligible roles.
// Lookup failures are logged and treated as not eligible.
func (r *Resolver) IsEligible(ctx context.Context, u *User, p *models.Proposal) bool {
	if u == nil {
		return false
	}
	if !u.HasRole(p.EligibleRoles...) {
		return false
	}
	if p.BuildingID == nil {
		return true
	}
	ok, err := r.hasBuildingAccess(ctx, u, *p.BuildingID)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"proposal_id": p.ID,
			"user_id":     u.ID,
		}).WithError(err).Warn("eligibility lookup failed")
		return false
	}
	return ok
}

// CanView reports whether u may see p. Platform-wide proposals are visible
// to every authenticated user.
func (r *Resolver) CanView(ctx context.Context, u *User, p *models.Proposal) (bool, error) {
	if u == nil {
		return false, nil
	}
	if p.BuildingID == nil {
		return true, nil
	}
	return r.hasBuildingAccess(ctx, u, *p.BuildingID)
}

// CanManage reports whether u may create or tally p: Admins always, Managers
// for platform-wide proposals and for buildings they have access to.
func (r *Resolver) CanManage(ctx context.Context, u *User, buildingID *uint64) (bool, error) {
	if u.IsAdmin() {
		return true, nil
	}
	if !u.HasRole(models.RoleManager) {
		return false, nil
	}
	if buildingID == nil {
		return true, nil
	}
	return r.hasBuildingAccess(ctx, u, *buildingID)
}

func (r *Resolver) hasBuildingAccess(ctx context.Context, u *User, buildingID uint64) (bool, error) {
	if u.IsAdmin() {
		return true, nil
	}
	ids, all, err := r.dir.UserBuildingIDs(ctx, u.ID)
	if err != nil {
		return false, err
	}
	if all {
		return true, nil
	}
	for _, id := range ids {
		if id == buildingID {
			return true, nil
		}
	}
	return false, nil
}
