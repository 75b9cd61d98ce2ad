package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"property-governance-backend/models"
)

// setupTestDB opens a private in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

var (
	testStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	testEnd   = testStart.Add(72 * time.Hour)
)

func newTestProposal(buildingID *uint64, method models.VotingMethod) *models.Proposal {
	return &models.Proposal{
		Title:         "Replace the roof",
		Description:   "Quote attached",
		CreatedBy:     1,
		BuildingID:    buildingID,
		StartTime:     testStart,
		EndTime:       testEnd,
		VotingMethod:  method,
		EligibleRoles: []string{models.RoleHomeowner},
	}
}

func uptr(v uint64) *uint64 { return &v }

func fptr(v float64) *float64 { return &v }

// directoryFixture seeds two buildings:
//
//	user 1: Admin
//	user 2: owns apartments 1 and 2 in building 1, apartment 3 in building 2
//	user 3: active renter in building 1, inactive renter in building 2
//	user 4: manager of building 2
//	user 5: owns a deleted apartment in building 1
func directoryFixture(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&[]models.Role{
		{ID: 1, Name: models.RoleAdmin},
		{ID: 2, Name: models.RoleManager},
		{ID: 3, Name: models.RoleHomeowner},
		{ID: 4, Name: models.RoleRenter},
	}).Error)
	require.NoError(t, db.Create(&[]models.User{
		{ID: 1, Email: "admin@example.com"},
		{ID: 2, Email: "owner@example.com"},
		{ID: 3, Email: "renter@example.com"},
		{ID: 4, Email: "manager@example.com"},
		{ID: 5, Email: "ghost@example.com"},
	}).Error)
	require.NoError(t, db.Create(&[]models.UserRole{
		{UserID: 1, RoleID: 1},
		{UserID: 2, RoleID: 3},
		{UserID: 3, RoleID: 4},
		{UserID: 4, RoleID: 2},
		{UserID: 5, RoleID: 3},
	}).Error)
	require.NoError(t, db.Create(&[]models.Building{
		{ID: 1, Address: "1 Main St"},
		{ID: 2, Address: "2 Main St"},
	}).Error)
	require.NoError(t, db.Create(&[]models.Apartment{
		{ID: 1, BuildingID: 1, Number: "1A", SizeSqM: fptr(80)},
		{ID: 2, BuildingID: 1, Number: "1B", SizeSqM: fptr(40.5)},
		{ID: 3, BuildingID: 2, Number: "2A"},
		{ID: 4, BuildingID: 1, Number: "1C", SizeSqM: fptr(55), IsDeleted: true},
		{ID: 5, BuildingID: 2, Number: "2B", SizeSqM: fptr(60)},
	}).Error)
	require.NoError(t, db.Create(&[]models.ApartmentOwner{
		{ApartmentID: 1, UserID: 2},
		{ApartmentID: 2, UserID: 2},
		{ApartmentID: 3, UserID: 2},
		{ApartmentID: 4, UserID: 5},
	}).Error)
	require.NoError(t, db.Create(&[]models.ApartmentRenter{
		{ApartmentID: 1, UserID: 3, IsActive: true},
		{ApartmentID: 5, UserID: 3, IsActive: true},
	}).Error)
	// false is the zero value and would be replaced by the column default on insert.
	require.NoError(t, db.Model(&models.ApartmentRenter{}).
		Where("apartment_id = ?", 5).
		Update("is_active", false).Error)
	require.NoError(t, db.Create(&models.BuildingManager{BuildingID: 2, UserID: 4}).Error)
}
