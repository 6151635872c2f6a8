// Package warehouse owns the staging warehouse: schema bootstrap, the dual
// writer for canonical/sidecar row pairs, and the read-side queries the
// pipeline and its operators rely on (verification, counts, audits).
package warehouse

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config selects the warehouse backend. Driver is "sqlite" (default, DSN is
// a file path or ":memory:") or "postgres" (DSN in libpq keyword form).
type Config struct {
	Driver string
	DSN    string
}

// Open connects to the warehouse database.
func Open(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		sqlDB, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres connection: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to warehouse (%s): %w", cfg.Driver, err)
	}
	return db, nil
}

// Migrate creates the staging tables and indexes, then verifies each table
// actually exists. AutoMigrate will not delete columns or data; the staging
// tables are append-only and safe to migrate repeatedly.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(&RawStagingRow{}, &RawPayloadRow{}, &SilverMemberRow{})
	if err != nil {
		return fmt.Errorf("auto-migrate staging tables: %w", err)
	}
	for _, table := range []string{"raw_staging", "raw_staging_payload", "silver_members"} {
		if !db.Migrator().HasTable(table) {
			return fmt.Errorf("table %s missing after migration", table)
		}
	}
	log.Println("Warehouse schema migration completed")
	return nil
}
