package governance

import (
	"time"

	"property-governance-backend/models"
)

// CurrentStatus derives the status of p at now. Tallied is sticky; the other
// states follow the voting window [StartTime, EndTime).
func CurrentStatus(p *models.Proposal, now time.Time) models.ProposalStatus {
	switch {
	case p.Tallied:
		return models.StatusTallied
	case now.Before(p.StartTime):
		return models.StatusScheduled
	case now.Before(p.EndTime):
		return models.StatusOpen
	default:
		return models.StatusClosed
	}
}

// WithStatus fills the computed Status field of p and returns it.
func WithStatus(p *models.Proposal, now time.Time) *models.Proposal {
	p.Status = CurrentStatus(p, now)
	return p
}
