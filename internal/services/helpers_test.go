package services

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/the-medo/swu-collection/backend/internal/database"
	"github.com/the-medo/swu-collection/backend/internal/models"
)

// refTime is the fixed "now" of store-level tests
var refTime = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), logger.Silent)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func seedCollection(t *testing.T, db *gorm.DB, modifiedAt time.Time) string {
	t.Helper()
	c := models.Collection{UserID: "user-1", Title: "binder"}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create collection: %v", err)
	}
	setModified(t, db, "collections", c.ID, modifiedAt)
	return c.ID
}

func seedDeck(t *testing.T, db *gorm.DB, modifiedAt time.Time) string {
	t.Helper()
	d := models.Deck{UserID: "user-1", Name: "aggro", Format: "premier"}
	if err := db.Create(&d).Error; err != nil {
		t.Fatalf("create deck: %v", err)
	}
	setModified(t, db, "decks", d.ID, modifiedAt)
	return d.ID
}

func setModified(t *testing.T, db *gorm.DB, table, id string, at time.Time) {
	t.Helper()
	at = at.UTC()
	if err := db.Exec("UPDATE "+table+" SET created_at = ?, updated_at = ? WHERE id = ?", at, at, id).Error; err != nil {
		t.Fatalf("set %s timestamps: %v", table, err)
	}
}

func seedAggregate(t *testing.T, db *gorm.DB, kind models.EntityKind, entityID string, at time.Time) {
	t.Helper()
	row := models.AggregatePrice{
		EntityID:    entityID,
		SourceType:  models.SourceCardmarket,
		EntityKind:  kind,
		UpdatedAt:   at.UTC(),
		Data:        map[string]string{},
		DataMissing: map[string]int{},
		Price:       "0.00",
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create aggregate row: %v", err)
	}
}

func seedLine(t *testing.T, db *gorm.DB, table, entityID, cardID string, qty int) {
	t.Helper()
	l := models.OwnershipLine{
		EntityID:  entityID,
		CardID:    cardID,
		VariantID: "standard",
		Condition: models.ConditionNearMint,
		Language:  models.LanguageEnglish,
		Quantity:  qty,
	}
	if err := db.Table(table).Create(&l).Error; err != nil {
		t.Fatalf("create line: %v", err)
	}
}

func seedSnapshot(t *testing.T, db *gorm.DB, cardID string, source models.SourceType, price string, data string) {
	t.Helper()
	s := models.PriceSnapshot{
		CardID:     cardID,
		VariantID:  "standard",
		SourceType: source,
		Data:       data,
		UpdatedAt:  refTime,
	}
	if price != "" {
		if err := s.Price.Scan(price); err != nil {
			t.Fatalf("parse price %q: %v", price, err)
		}
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("create snapshot: %v", err)
	}
}

func fixedSelector(db *gorm.DB, now time.Time) *StalenessSelector {
	s := NewStalenessSelector(db)
	s.now = func() time.Time { return now }
	return s
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
