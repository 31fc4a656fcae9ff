// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"arbitra/internal/config"
	"arbitra/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the PostgreSQL pool, applies pool limits and verifies the
// connection before returning.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	// Configure GORM logger to ignore "record not found" errors
	gormLogger := logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormLogger,
		PrepareStmt:    true,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("postgres connected",
		"module", "repositories",
		"operation", "connect",
		"outcome", "success",
		"max_open_conns", cfg.MaxOpenConns,
	)
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Business{},
		&models.Profile{},
		&models.APIKey{},
		&models.Transaction{},
		&models.Dispute{},
		&models.Evidence{},
		&models.Comment{},
		&models.DisputeHistory{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// Backstop for the application-level check in dispute creation: one
	// active dispute per transaction and tenant.
	err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_disputes_open_transaction
		ON disputes (transaction_id, COALESCE(business_id, '00000000-0000-0000-0000-000000000000'::uuid))
		WHERE transaction_id IS NOT NULL AND status IN ('open', 'under_review')`).Error
	if err != nil {
		return fmt.Errorf("create open dispute index: %w", err)
	}
	return nil
}

// NormalizeLegacyStatuses rewrites status spellings used by older releases
// onto the canonical set. It returns the number of rows touched.
func NormalizeLegacyStatuses(db *gorm.DB) (int64, error) {
	result := db.Exec(`UPDATE disputes SET status = CASE status
			WHEN 'pending' THEN 'open'
			WHEN 'opened' THEN 'open'
			WHEN 'cancelled' THEN 'canceled'
		END
		WHERE status IN ('pending', 'opened', 'cancelled')`)
	if result.Error != nil {
		return 0, fmt.Errorf("normalize legacy statuses: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping is used by the health endpoint.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
