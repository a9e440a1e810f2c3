// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/druklands/landledger/internal/config"
	"github.com/druklands/landledger/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return err
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// AutoMigrate creates the schema for every registry model. Split out
// from RunMigrations so test setups can run it against sqlite.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Parcel{},
		&models.ParcelShare{},
		&models.LandToken{},
		&models.TokenShare{},
		&models.TokenVerification{},
		&models.VerifierRole{},
		&models.GovernanceAuthority{},
		&models.TokenCounter{},
		&models.Sale{},
		&models.WithdrawalBalance{},
		&models.LedgerEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Parcel indexes
		"CREATE INDEX IF NOT EXISTS idx_parcels_thram ON parcels(thram_number)",
		"CREATE INDEX IF NOT EXISTS idx_parcels_verified ON parcels(verified)",
		"CREATE INDEX IF NOT EXISTS idx_parcel_shares_holder ON parcel_shares(holder_id)",
		"CREATE INDEX IF NOT EXISTS idx_parcel_shares_did ON parcel_shares(holder_did)",

		// Token indexes
		"CREATE INDEX IF NOT EXISTS idx_land_tokens_thram ON land_tokens(thram_number)",
		"CREATE INDEX IF NOT EXISTS idx_land_tokens_plot ON land_tokens(plot_number)",
		"CREATE INDEX IF NOT EXISTS idx_token_shares_holder ON token_shares(holder_id)",

		// Escrow indexes
		"CREATE INDEX IF NOT EXISTS idx_sales_status ON sales(status)",
		"CREATE INDEX IF NOT EXISTS idx_sales_seller ON sales(seller_id)",

		// Event indexes
		"CREATE INDEX IF NOT EXISTS idx_ledger_events_entity ON ledger_events(entity_key, seq)",
		"CREATE INDEX IF NOT EXISTS idx_ledger_events_component ON ledger_events(component, operation)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData creates the approver account, the token counter row,
// and the governance authority pointers on first start.
func SeedInitialData(db *gorm.DB, cfg *config.Config) error {
	log.Println("Seeding initial data...")

	var approver models.User
	err := db.Where("user_type = ?", models.UserTypeApprover).First(&approver).Error
	if err != nil {
		approver = models.User{
			Username: "approver",
			Email:    cfg.Registry.ApproverEmail,
			UserType: models.UserTypeApprover,
			Status:   models.UserStatusActive,
			ProfileData: models.JSONB{
				"role": "registry_authority",
			},
		}

		if err := approver.SetPassword(cfg.Registry.ApproverPassword); err != nil {
			return fmt.Errorf("failed to set approver password: %w", err)
		}

		if err := db.Create(&approver).Error; err != nil {
			return fmt.Errorf("failed to create approver user: %w", err)
		}

		log.Println("Registry approver account created successfully")
	}

	// Token counter starts at zero; the first mint takes ID 1.
	var counterCount int64
	db.Model(&models.TokenCounter{}).Count(&counterCount)
	if counterCount == 0 {
		if err := db.Create(&models.TokenCounter{ID: 1, Value: 0}).Error; err != nil {
			return fmt.Errorf("failed to create token counter: %w", err)
		}
	}

	// Governance authority pointers for the verifier registry and its
	// administration facade, both owned by the approver at bootstrap.
	for _, scope := range []models.GovernanceScope{models.ScopeVerifierRegistry, models.ScopeVerifierAdmin} {
		var count int64
		db.Model(&models.GovernanceAuthority{}).Where("scope = ?", scope).Count(&count)
		if count == 0 {
			authority := &models.GovernanceAuthority{Scope: scope, OwnerID: approver.ID}
			if err := db.Create(authority).Error; err != nil {
				return fmt.Errorf("failed to create governance authority %s: %w", scope, err)
			}
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
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
