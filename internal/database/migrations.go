package database

import (
	"log"

	"gorm.io/gorm"
)

// RunMigrations runs any custom data migrations after schema changes.
// Every step is safe to run multiple times.
func RunMigrations(db *gorm.DB) error {
	if err := migrateLanguageField(db); err != nil {
		return err
	}
	if err := backfillEntityUpdatedAt(db); err != nil {
		return err
	}
	return nil
}

// migrateLanguageField ensures every ownership line has a language code
func migrateLanguageField(db *gorm.DB) error {
	for _, table := range []string{"collection_cards", "deck_cards"} {
		if !db.Migrator().HasColumn(table, "language") {
			continue
		}
		result := db.Exec(`UPDATE ` + table + ` SET language = 'EN' WHERE language IS NULL OR language = ''`)
		if result.Error != nil {
			log.Printf("Warning: failed to normalize %s language values: %v", table, result.Error)
			continue
		}
		if result.RowsAffected > 0 {
			log.Printf("Normalized language on %d %s rows", result.RowsAffected, table)
		}
	}
	return nil
}

// backfillEntityUpdatedAt copies created_at into a missing updated_at.
// The staleness selector orders and compares on updated_at, so it must never be NULL.
func backfillEntityUpdatedAt(db *gorm.DB) error {
	for _, table := range []string{"collections", "decks"} {
		if !db.Migrator().HasTable(table) {
			continue
		}
		result := db.Exec(`UPDATE ` + table + ` SET updated_at = created_at WHERE updated_at IS NULL`)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			log.Printf("Backfilled updated_at on %d %s rows", result.RowsAffected, table)
		}
	}
	return nil
}
