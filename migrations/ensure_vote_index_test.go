package migrations

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestEnsureVoteIndexCollapsesDuplicates(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec(`CREATE TABLE votes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		proposal_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		choice TEXT NOT NULL
	)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO votes (proposal_id, user_id, choice) VALUES
		(1, 10, 'Yes'), (1, 10, 'No'), (1, 11, 'Yes'), (2, 10, 'Abstain'), (1, 10, 'Abstain')`).Error)

	require.NoError(t, EnsureVoteIndex(db, quietLog()))

	type row struct {
		ProposalID uint64
		UserID     uint64
		Choice     string
	}
	var rows []row
	require.NoError(t, db.Raw("SELECT proposal_id, user_id, choice FROM votes ORDER BY proposal_id, user_id").Scan(&rows).Error)
	assert.Equal(t, []row{
		{1, 10, "Abstain"},
		{1, 11, "Yes"},
		{2, 10, "Abstain"},
	}, rows)
	assert.True(t, db.Migrator().HasIndex(&legacyVote{}, VoteIndexName))

	// A second run is a no-op.
	require.NoError(t, EnsureVoteIndex(db, quietLog()))

	err := db.Exec("INSERT INTO votes (proposal_id, user_id, choice) VALUES (1, 11, 'No')").Error
	assert.Error(t, err, "index must reject a second ballot")
}

func TestEnsureVoteIndexWithoutTable(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, EnsureVoteIndex(db, quietLog()))
	assert.False(t, db.Migrator().HasTable(&legacyVote{}))
}
