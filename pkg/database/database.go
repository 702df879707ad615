package database

import (
	"fmt"

	"listing-service/internal/model"
	"listing-service/pkg/config"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDB initializes the database connection with configuration and runs migrations
func InitDB(cfg *config.Config) error {
	var err error

	// Configure GORM logger
	logLevel := logger.Error
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	}

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.Database.Host,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Name,
			cfg.Database.Port,
			cfg.Database.SSLMode,
		)
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true, // Disables implicit prepared statement usage
		})
	case "sqlite":
		// DB_NAME is the file path (":memory:" for tests and local runs)
		dialector = sqlite.Open(cfg.Database.Name)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	db, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get generic database object SQL
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}

	// Set connection pool settings from config
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return Migrate(db)
}

// Migrate runs schema migrations, including the postgres-only geography column
// backing the spatial search
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Listing{}, &model.Image{}); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		statements := []string{
			`CREATE EXTENSION IF NOT EXISTS postgis`,
			`ALTER TABLE listings ADD COLUMN IF NOT EXISTS location geography(Point,4326)`,
			`CREATE INDEX IF NOT EXISTS idx_listings_location ON listings USING GIST (location)`,
		}
		for _, stmt := range statements {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to prepare spatial schema: %w", err)
			}
		}
	}

	return nil
}

// Ping verifies database connectivity
func Ping() error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}
