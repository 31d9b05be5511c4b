package database

import (
	"log"
	"time"

	"github.com/the-medo/swu-collection/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize opens the database at dbPath and stores it as the process-wide handle
func Initialize(dbPath string) error {
	db, err := Open(dbPath, logger.Warn)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to sqlite, migrates the schema and runs data migrations.
// Timestamps are written in UTC so that stored values compare correctly as text.
func Open(dbPath string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	// sqlite allows one writer; a single connection keeps the worker's concurrent kinds and
	// request handlers from failing with SQLITE_BUSY
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	log.Println("Database connected successfully")

	// Auto-migrate the schema
	err = db.AutoMigrate(
		&models.Collection{},
		&models.Deck{},
		&models.CollectionCard{},
		&models.DeckCard{},
		&models.PriceSnapshot{},
		&models.AggregatePrice{},
	)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}
