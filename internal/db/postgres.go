package db

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Jaguar1-alt/Gigconnect/internal/config"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

// Connect opens the PostgreSQL pool. Unique violations surface as
// gorm.ErrDuplicatedKey.
func Connect(cfg config.Database, log *logrus.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(
		log,
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
		// references are resolved through preloads, rows may outlive the accounts they point at
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	log.WithFields(logrus.Fields{
		"max_idle": cfg.MaxIdleConns,
		"max_open": cfg.MaxOpenConns,
	}).Info("database connection established")
	return gdb, nil
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Gig{},
		&models.Proposal{},
		&models.Review{},
		&models.Message{},
		&models.PayoutRecord{},
	)
}
