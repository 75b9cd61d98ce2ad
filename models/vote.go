package models

import "time"

// VoteChoice is a ballot answer.
type VoteChoice string

const (
	ChoiceYes     VoteChoice = "Yes"
	ChoiceNo      VoteChoice = "No"
	ChoiceAbstain VoteChoice = "Abstain"
)

// Valid reports whether c is Yes, No or Abstain.
func (c VoteChoice) Valid() bool {
	switch c {
	case ChoiceYes, ChoiceNo, ChoiceAbstain:
		return true
	default:
		return false
	}
}

// Vote is the current ballot of one user on one proposal. The pair
// (proposal_id, user_id) is unique; changing a vote rewrites the row.
type Vote struct {
	ID         uint64     `gorm:"primaryKey" json:"id"`
	ProposalID uint64     `gorm:"not null;uniqueIndex:idx_votes_proposal_user,priority:1" json:"proposal_id"`
	UserID     uint64     `gorm:"not null;uniqueIndex:idx_votes_proposal_user,priority:2" json:"user_id"`
	Choice     VoteChoice `gorm:"size:16;not null" json:"choice"`
	CastAt     time.Time  `gorm:"not null" json:"cast_at"`
	UpdatedAt  time.Time  `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

// VoteCounts are raw ballot counts, independent of the weighting method.
type VoteCounts struct {
	Yes     int64 `json:"yes_count"`
	No      int64 `json:"no_count"`
	Abstain int64 `json:"abstain_count"`
}

// Total returns the number of ballots.
func (c VoteCounts) Total() int64 {
	return c.Yes + c.No + c.Abstain
}
