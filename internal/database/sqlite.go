package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/card-catalog/internal/models"
)

var DB *gorm.DB

// Initialize opens the process-wide database handle.
func Initialize(dbPath string) error {
	db, err := Open(dbPath)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to the SQLite file at dbPath, migrates the schema and runs
// the data migrations.
func Open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Ban-list batches are written one group at a time; a single writer
	// connection keeps SQLite from returning SQLITE_BUSY under concurrent admins.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	log.Println("Database connected successfully")

	if err := db.AutoMigrate(&models.Card{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run data migrations: %w", err)
	}

	log.Println("Database migration completed")
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}
