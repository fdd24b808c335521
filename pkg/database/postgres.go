package database

import (
	"fmt"
	"time"

	"github.com/Eursukkul/outing-service/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if log != nil {
		log.Info("database connected")
	}
	return db, nil
}

// Migrate creates or updates the outing, participation and notification tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Outing{}, &models.Participation{}, &models.Notification{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// Partial index: the sweep and reminders only ever scan live outings.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_outings_live_start
		ON outings (start_at)
		WHERE state NOT IN ('CANCELLED', 'ARCHIVED')
	`).Error; err != nil {
		return fmt.Errorf("create live outings index: %w", err)
	}
	return nil
}
