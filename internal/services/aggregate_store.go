package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/the-medo/swu-collection/backend/internal/models"
)

// upsertBatchSize bounds the number of rows in one INSERT statement
const upsertBatchSize = 200

// ErrEntityNotFound is returned when a collection or deck does not exist
var ErrEntityNotFound = errors.New("entity not found")

// AggregateStore reads the inputs of the price aggregator and persists its output
type AggregateStore struct {
	db *gorm.DB
}

// NewAggregateStore creates a new aggregate store
func NewAggregateStore(db *gorm.DB) *AggregateStore {
	return &AggregateStore{db: db}
}

// LoadJoinedLines returns every ownership line of the given entities left-joined with the price
// snapshots of its card variant, one result row per (line, source type)
func (s *AggregateStore) LoadJoinedLines(ctx context.Context, policy StalenessPolicy, entityIDs []string) ([]JoinedLine, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}

	var lines []JoinedLine
	err := s.db.WithContext(ctx).
		Table(policy.LineTable+" AS l").
		Select(`l.entity_id, l.card_id, l.variant_id, l.foil, l.condition, l.language, l.quantity,
			p.source_type, p.price, p.data`).
		Joins("LEFT JOIN card_variant_prices AS p ON p.card_id = l.card_id AND p.variant_id = l.variant_id").
		Where("l.entity_id IN ?", entityIDs).
		Order("l.entity_id, l.card_id, l.variant_id, p.source_type").
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("load %s lines: %w", policy.Kind, err)
	}
	return lines, nil
}

// UpsertAggregates writes rows in a single transaction. A row whose (entity_id, source_type)
// already exists has every other column overwritten; the last writer wins.
func (s *AggregateStore) UpsertAggregates(ctx context.Context, kind models.EntityKind, rows []AggregateRow, now time.Time) error {
	if len(rows) == 0 {
		return nil
	}

	records := make([]models.AggregatePrice, 0, len(rows))
	for _, row := range rows {
		records = append(records, toAggregatePrice(kind, row, now))
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "entity_id"}, {Name: "source_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"entity_kind", "updated_at", "data", "data_missing", "price", "price_missing",
			}),
		}).CreateInBatches(&records, upsertBatchSize).Error
		if err != nil {
			return fmt.Errorf("upsert %d %s aggregate rows: %w", len(records), kind, err)
		}
		return nil
	})
}

func toAggregatePrice(kind models.EntityKind, row AggregateRow, now time.Time) models.AggregatePrice {
	data := make(map[string]string, len(row.Data))
	for key, value := range row.Data {
		data[key] = value.StringFixed(priceDecimals)
	}
	missing := make(map[string]int, len(row.DataMissing))
	for key, n := range row.DataMissing {
		missing[key] = n
	}

	return models.AggregatePrice{
		EntityID:     row.EntityID,
		SourceType:   row.SourceType,
		EntityKind:   kind,
		UpdatedAt:    now,
		Data:         data,
		DataMissing:  missing,
		Price:        row.Price.StringFixed(priceDecimals),
		PriceMissing: row.PriceMissing,
	}
}

// GetAggregatePrices returns the stored rows of one entity ordered by source type
func (s *AggregateStore) GetAggregatePrices(ctx context.Context, kind models.EntityKind, entityID string) ([]models.AggregatePrice, error) {
	var prices []models.AggregatePrice
	err := s.db.WithContext(ctx).
		Where("entity_id = ? AND entity_kind = ?", entityID, kind).
		Order("source_type ASC").
		Find(&prices).Error
	if err != nil {
		return nil, fmt.Errorf("get aggregate prices for %s %s: %w", kind, entityID, err)
	}
	return prices, nil
}

// LastAggregatedAt returns the newest updated_at among an entity's rows.
// The boolean is false when the entity has never been aggregated.
func (s *AggregateStore) LastAggregatedAt(ctx context.Context, kind models.EntityKind, entityID string) (time.Time, bool, error) {
	var latest models.AggregatePrice
	err := s.db.WithContext(ctx).
		Where("entity_id = ? AND entity_kind = ?", entityID, kind).
		Order("updated_at DESC").
		Take(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last aggregate time for %s %s: %w", kind, entityID, err)
	}
	return latest.UpdatedAt, true, nil
}

// EntityExists reports whether the collection or deck is present
func (s *AggregateStore) EntityExists(ctx context.Context, policy StalenessPolicy, entityID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Table(policy.EntityTable).Where("id = ?", entityID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check %s %s: %w", policy.Kind, entityID, err)
	}
	return count > 0, nil
}
