package migrations

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// VoteIndexName is the unique index on votes(proposal_id, user_id).
const VoteIndexName = "idx_votes_proposal_user"

// legacyVote only names the table for the migrator.
type legacyVote struct{}

func (legacyVote) TableName() string {
	return "votes"
}

// EnsureVoteIndex upgrades vote tables created without the unique
// (proposal_id, user_id) index. Duplicate ballots are collapsed to the most
// recent row before the index is added. Fresh databases are left to
// AutoMigrate.
func EnsureVoteIndex(db *gorm.DB, log logrus.FieldLogger) error {
	m := db.Migrator()
	if !m.HasTable(&legacyVote{}) {
		return nil
	}
	if m.HasIndex(&legacyVote{}, VoteIndexName) {
		log.Debug("votes unique index present")
		return nil
	}

	log.Info("adding unique index to votes")
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`DELETE FROM votes WHERE id NOT IN (
			SELECT id FROM (
				SELECT MAX(id) AS id FROM votes GROUP BY proposal_id, user_id
			) AS latest
		)`)
		if res.Error != nil {
			return errors.Wrap(res.Error, "collapse duplicate votes")
		}
		if res.RowsAffected > 0 {
			log.WithField("removed", res.RowsAffected).Warn("removed duplicate votes")
		}
		if err := tx.Exec("CREATE UNIQUE INDEX " + VoteIndexName + " ON votes (proposal_id, user_id)").Error; err != nil {
			return errors.Wrap(err, "create votes unique index")
		}
		return nil
	})
}
