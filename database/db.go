package database

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"property-governance-backend/config"
	"property-governance-backend/logging"
	"property-governance-backend/migrations"
	"property-governance-backend/models"
)

// Dialector picks the gorm driver for cfg.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		return mysql.Open(cfg.MySQLDSN()), nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "governance.db"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, errors.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open connects to the configured database. Unique violations are
// translated to gorm.ErrDuplicatedKey, which the repositories rely on.
func Open(cfg config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	return OpenDialector(dialector, cfg, log)
}

func OpenDialector(dialector gorm.Dialector, cfg config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logging.GormLogger(log, cfg.SlowQuery),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	log.WithField("driver", cfg.Driver).Info("database connected")
	return db, nil
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB, log logrus.FieldLogger) error {
	// Legacy vote tables must be de-duplicated before the unique index can
	// be created by AutoMigrate.
	if err := migrations.EnsureVoteIndex(db, log); err != nil {
		return err
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	log.Info("database migrated")
	return nil
}

// SeedRoles creates the platform roles when the roles table is empty. Only
// used in development.
func SeedRoles(db *gorm.DB, log logrus.FieldLogger) error {
	var count int64
	if err := db.Model(&models.Role{}).Count(&count).Error; err != nil {
		return errors.Wrap(err, "count roles")
	}
	if count > 0 {
		log.Debug("roles present, skipping seed")
		return nil
	}
	roles := make([]models.Role, 0, len(models.KnownRoles))
	for _, name := range models.KnownRoles {
		roles = append(roles, models.Role{Name: name})
	}
	if err := db.Create(&roles).Error; err != nil {
		return errors.Wrap(err, "seed roles")
	}
	log.WithField("roles", len(roles)).Info("seeded roles")
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB, log logrus.FieldLogger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Warn("failed to get database handle")
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Warn("failed to close database")
		return
	}
	log.Info("database closed")
}
