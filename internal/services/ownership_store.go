package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/the-medo/swu-collection/backend/internal/models"
)

var (
	// ErrInvalidQuantity is returned for a zero quantity change
	ErrInvalidQuantity = errors.New("quantity change must not be zero")

	// ErrInvalidCondition is returned for a condition outside the defined grades
	ErrInvalidCondition = errors.New("unknown card condition")
)

// maxLineQuantity is the largest quantity one ownership line may hold
const maxLineQuantity = 9999

// OwnershipStore mutates collection and deck ownership lines
type OwnershipStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewOwnershipStore creates a new ownership store
func NewOwnershipStore(db *gorm.DB) *OwnershipStore {
	return &OwnershipStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// AddQuantity adds delta copies to the line identified by line's key fields and returns the
// resulting quantity. The line is created when absent and removed when its quantity drops to
// zero or below; the result is capped at 9999. The owning entity's updated_at is touched so the
// staleness selector picks the change up.
//
// This is a read-merge-write inside one transaction; concurrent calls on the same line are
// serialized by the database write lock.
func (s *OwnershipStore) AddQuantity(ctx context.Context, kind models.EntityKind, line models.OwnershipLine, delta int) (int, error) {
	if delta == 0 {
		return 0, ErrInvalidQuantity
	}
	if !line.Condition.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCondition, int(line.Condition))
	}
	policy, err := PolicyFor(kind)
	if err != nil {
		return 0, err
	}
	if line.Language == "" {
		line.Language = models.LanguageEnglish
	}

	var quantity int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Table(policy.EntityTable).Where("id = ?", line.EntityID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrEntityNotFound
		}

		key := map[string]any{
			"entity_id":  line.EntityID,
			"card_id":    line.CardID,
			"variant_id": line.VariantID,
			"foil":       line.Foil,
			"condition":  line.Condition,
			"language":   line.Language,
		}

		var existing models.OwnershipLine
		err := tx.Table(policy.LineTable).Where(key).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if delta < 0 {
				quantity = 0
				return nil
			}
			line.Quantity = min(delta, maxLineQuantity)
			if err := tx.Table(policy.LineTable).Create(&line).Error; err != nil {
				return err
			}
			quantity = line.Quantity
		case err != nil:
			return err
		default:
			quantity = min(existing.Quantity+delta, maxLineQuantity)
			if quantity <= 0 {
				quantity = 0
				if err := tx.Table(policy.LineTable).Where(key).Delete(&models.OwnershipLine{}).Error; err != nil {
					return err
				}
			} else {
				updates := map[string]any{"quantity": quantity}
				if line.Note != "" {
					updates["note"] = line.Note
				}
				if err := tx.Table(policy.LineTable).Where(key).Updates(updates).Error; err != nil {
					return err
				}
			}
		}

		return tx.Table(policy.EntityTable).Where("id = ?", line.EntityID).
			Update("updated_at", s.now()).Error
	})
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("add quantity to %s %s: %w", kind, line.EntityID, err)
	}
	return quantity, nil
}
