// internal/database/connection.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/config"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
)

var logLevels = map[string]logger.LogLevel{
	"silent": logger.Silent,
	"error":  logger.Error,
	"warn":   logger.Warn,
	"info":   logger.Info,
}

func Initialize(cfg config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	return Open(cfg.DSN(), cfg, log)
}

// Open connects to dsn with the pool settings of cfg. Duplicate-key errors
// are translated to gorm.ErrDuplicatedKey.
func Open(dsn string, cfg config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	level, ok := logLevels[cfg.LogLevel]
	if !ok {
		level = logger.Warn
	}

	gormConfig := &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)
	}

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection established")
	return db, nil
}

func Close(db *gorm.DB, log *logrus.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Error("Error closing database connection")
	} else {
		log.Info("Database connection closed")
	}
}

func RunMigrations(db *gorm.DB, log *logrus.Logger) error {
	log.Info("Running database migrations")

	// gen_random_uuid() lives in pgcrypto before PostgreSQL 13
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.NegotiationSession{},
		&models.Contract{},
		&models.LicensingWorkflow{},
		&models.RevenueDistributionRecord{},
		&models.Dispute{},
		&models.OutboxEvent{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db, log)

	log.Info("Database migrations completed")
	return nil
}

func createIndexes(db *gorm.DB, log *logrus.Logger) {
	indexes := []string{
		// Negotiation indexes
		"CREATE INDEX IF NOT EXISTS idx_negotiations_open_expiry ON negotiation_sessions(expires_at) WHERE status IN ('INITIATED', 'IN_PROGRESS', 'COUNTER_OFFER')",
		"CREATE INDEX IF NOT EXISTS idx_negotiations_created_at ON negotiation_sessions(created_at DESC)",

		// Contract indexes
		"CREATE INDEX IF NOT EXISTS idx_contracts_parties ON contracts USING GIN(parties)",
		"CREATE INDEX IF NOT EXISTS idx_contracts_pending_deadline ON contracts(signature_deadline) WHERE status = 'PENDING_SIGNATURES'",

		// Distribution indexes
		"CREATE INDEX IF NOT EXISTS idx_distributions_workflow_period ON revenue_distribution_records(workflow_id, period_start)",

		// Dispute indexes
		"CREATE INDEX IF NOT EXISTS idx_disputes_workflow_status ON disputes(workflow_id, status)",

		// Outbox indexes
		"CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_events(occurred_at) WHERE published_at IS NULL",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_actor_action ON audit_logs(actor_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			log.WithError(err).WithField("index", index).Warn("Failed to create index")
		}
	}
}

// WithTransaction runs fn in a transaction bound to ctx, rolling back on
// error or panic.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
