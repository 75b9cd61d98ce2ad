package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VotingMethod names the weighting rule a proposal is tallied with.
type VotingMethod string

const (
	SimpleMajority VotingMethod = "SimpleMajority"
	PerSeat        VotingMethod = "PerSeat"
	WeightedArea   VotingMethod = "WeightedArea"
	Consensus      VotingMethod = "Consensus"
)

// Valid reports whether m is one of the supported methods.
func (m VotingMethod) Valid() bool {
	switch m {
	case SimpleMajority, PerSeat, WeightedArea, Consensus:
		return true
	default:
		return false
	}
}

// ProposalStatus is the lifecycle state of a proposal. Only Tallied is
// persisted, the others are derived from the voting window.
type ProposalStatus string

const (
	StatusScheduled ProposalStatus = "Scheduled"
	StatusOpen      ProposalStatus = "Open"
	StatusClosed    ProposalStatus = "Closed"
	StatusTallied   ProposalStatus = "Tallied"
)

// Role names known to the platform.
const (
	RoleAdmin     = "Admin"
	RoleManager   = "Manager"
	RoleHomeowner = "Homeowner"
	RoleRenter    = "Renter"
	RoleHOA       = "HOA"
)

// KnownRoles lists every role name a proposal may be restricted to.
var KnownRoles = []string{RoleAdmin, RoleManager, RoleHomeowner, RoleRenter, RoleHOA}

// Proposal is a governance question open for a bounded voting window.
type Proposal struct {
	ID            uint64         `gorm:"primaryKey" json:"id"`
	Title         string         `gorm:"size:255;not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	CreatedBy     uint64         `gorm:"not null;index" json:"created_by"`
	BuildingID    *uint64        `gorm:"index" json:"building_id"`
	StartTime     time.Time      `gorm:"not null" json:"start_time"`
	EndTime       time.Time      `gorm:"not null" json:"end_time"`
	VotingMethod  VotingMethod   `gorm:"size:32;not null" json:"voting_method"`
	EligibleRoles []string       `gorm:"serializer:json;type:text;not null" json:"eligible_roles"`
	Tallied       bool           `gorm:"not null;default:false" json:"-"`
	Status        ProposalStatus `gorm:"-" json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ProposalResult is the immutable outcome of a tally. Weights are in the
// unit of the method that produced them (vote counts, seats or square meters).
type ProposalResult struct {
	ID                   uint64          `gorm:"primaryKey" json:"id"`
	ProposalID           uint64          `gorm:"not null;uniqueIndex" json:"proposal_id"`
	Passed               bool            `gorm:"not null" json:"passed"`
	YesWeight            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"yes_weight"`
	NoWeight             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"no_weight"`
	AbstainWeight        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"abstain_weight"`
	TotalWeight          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_weight"`
	TalliedAt            time.Time       `gorm:"not null" json:"tallied_at"`
	MethodAppliedVersion string          `gorm:"size:16;not null" json:"method_applied_version"`
}

// ProposalDetail is a proposal together with live vote counts, the viewer's
// own vote and the tally result when one exists.
type ProposalDetail struct {
	Proposal
	YesCount     int64           `json:"yes_count"`
	NoCount      int64           `json:"no_count"`
	AbstainCount int64           `json:"abstain_count"`
	TotalVotes   int64           `json:"total_votes"`
	UserVote     *VoteChoice     `json:"user_vote"`
	UserEligible bool            `json:"user_eligible"`
	Result       *ProposalResult `json:"result"`
}
