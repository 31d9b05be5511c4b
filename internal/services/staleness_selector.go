package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/the-medo/swu-collection/backend/internal/models"
)

const (
	// CollectionFreshnessWindow forces a collection summary to be recomputed once it is this old
	CollectionFreshnessWindow = 8 * time.Hour

	// RetentionHorizon excludes entities untouched for longer than this from automatic recomputation
	RetentionHorizon = 30 * 24 * time.Hour

	defaultCollectionBatchSize = 25
	defaultDeckBatchSize       = 250
)

// StalenessPolicy holds everything that differs between entity kinds when selecting stale summaries
type StalenessPolicy struct {
	Kind        models.EntityKind
	EntityTable string
	LineTable   string

	// FreshnessWindow of zero means a summary only goes stale when the entity changes
	FreshnessWindow  time.Duration
	RetentionHorizon time.Duration
	BatchSize        int
}

var (
	CollectionPolicy = StalenessPolicy{
		Kind:             models.EntityCollection,
		EntityTable:      "collections",
		LineTable:        "collection_cards",
		FreshnessWindow:  CollectionFreshnessWindow,
		RetentionHorizon: RetentionHorizon,
		BatchSize:        defaultCollectionBatchSize,
	}

	DeckPolicy = StalenessPolicy{
		Kind:             models.EntityDeck,
		EntityTable:      "decks",
		LineTable:        "deck_cards",
		RetentionHorizon: RetentionHorizon,
		BatchSize:        defaultDeckBatchSize,
	}
)

// PolicyFor returns the staleness policy of an entity kind
func PolicyFor(kind models.EntityKind) (StalenessPolicy, error) {
	switch kind {
	case models.EntityCollection:
		return CollectionPolicy, nil
	case models.EntityDeck:
		return DeckPolicy, nil
	}
	return StalenessPolicy{}, fmt.Errorf("%w: %q", models.ErrUnknownEntityKind, kind)
}

// StalenessSelector finds entities whose aggregate price rows are missing or outdated
type StalenessSelector struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStalenessSelector creates a new staleness selector
func NewStalenessSelector(db *gorm.DB) *StalenessSelector {
	return &StalenessSelector{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

type staleCandidate struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// SelectStale returns up to maxCount entity IDs, most recently modified first, that have no
// aggregate row yet, changed after their newest aggregate row, or whose newest row is older than
// the policy's freshness window.
//
// The retention cutoff is applied to the already limited result, so fewer than maxCount IDs can
// come back while older eligible entities still exist. Later runs pick those up.
func (s *StalenessSelector) SelectStale(ctx context.Context, policy StalenessPolicy, maxCount int) ([]string, error) {
	if maxCount <= 0 {
		maxCount = policy.BatchSize
	}
	now := s.now()

	lastPriced := s.db.Model(&models.AggregatePrice{}).
		Select("entity_id, MAX(updated_at) AS last_priced").
		Where("entity_kind = ?", policy.Kind).
		Group("entity_id")

	query := s.db.WithContext(ctx).
		Table(policy.EntityTable+" AS e").
		Select("e.id, e.created_at, e.updated_at").
		Joins("LEFT JOIN (?) AS ap ON ap.entity_id = e.id", lastPriced)

	if policy.FreshnessWindow > 0 {
		query = query.Where("ap.last_priced IS NULL OR ap.last_priced < e.updated_at OR ap.last_priced < ?",
			now.Add(-policy.FreshnessWindow))
	} else {
		query = query.Where("ap.last_priced IS NULL OR ap.last_priced < e.updated_at")
	}

	var candidates []staleCandidate
	if err := query.Order("e.updated_at DESC").Limit(maxCount).Scan(&candidates).Error; err != nil {
		return nil, fmt.Errorf("select stale %s entities: %w", policy.Kind, err)
	}

	cutoff := now.Add(-policy.RetentionHorizon)
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if lastModified(c).Before(cutoff) {
			continue
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func lastModified(c staleCandidate) time.Time {
	if c.UpdatedAt != nil && !c.UpdatedAt.IsZero() {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}
