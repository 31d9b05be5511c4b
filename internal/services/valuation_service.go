package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/the-medo/swu-collection/backend/internal/metrics"
	"github.com/the-medo/swu-collection/backend/internal/models"
)

const (
	// OnDemandDebounce is the minimum age of an entity's summary before a read recomputes it
	OnDemandDebounce = 10 * time.Second

	defaultQueryTimeout = 30 * time.Second
	recentCacheSize     = 4096
)

// ErrRecomputeThrottled is returned when the on-demand limiter refuses a forced recompute
var ErrRecomputeThrottled = errors.New("recompute throttled, try again later")

// ValuationOptions tunes a ValuationService. Zero values fall back to defaults.
type ValuationOptions struct {
	QueryTimeout        time.Duration
	CollectionBatchSize int
	DeckBatchSize       int

	// OnDemandRate limits synchronous recomputes triggered by reads, process wide
	OnDemandRate  rate.Limit
	OnDemandBurst int
}

// RunResult summarizes one selector, aggregate and upsert run
type RunResult struct {
	RunID    string            `json:"run_id"`
	Kind     models.EntityKind `json:"kind"`
	Selected int               `json:"selected"`
	Upserted int               `json:"upserted"`
	Duration time.Duration     `json:"duration"`
}

// OnDemandOutcome describes what a read did before serving stored rows
type OnDemandOutcome string

const (
	OnDemandRecomputed OnDemandOutcome = "recomputed"
	OnDemandDebounced  OnDemandOutcome = "debounced"
	OnDemandThrottled  OnDemandOutcome = "throttled"
)

// ValuationService recomputes entity price summaries, either in scheduled batches or for a
// single entity on read
type ValuationService struct {
	selector *StalenessSelector
	store    *AggregateStore

	queryTimeout time.Duration
	batchSizes   map[models.EntityKind]int
	now          func() time.Time

	// recent remembers entities recomputed on demand by this process so repeated reads within
	// the debounce window skip the database check
	recent  *lru.Cache[string, time.Time]
	limiter *rate.Limiter
}

// NewValuationService creates a new valuation service
func NewValuationService(selector *StalenessSelector, store *AggregateStore, opts ValuationOptions) *ValuationService {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultQueryTimeout
	}
	if opts.CollectionBatchSize <= 0 {
		opts.CollectionBatchSize = CollectionPolicy.BatchSize
	}
	if opts.DeckBatchSize <= 0 {
		opts.DeckBatchSize = DeckPolicy.BatchSize
	}
	if opts.OnDemandRate <= 0 {
		opts.OnDemandRate = rate.Limit(5)
	}
	if opts.OnDemandBurst <= 0 {
		opts.OnDemandBurst = 10
	}

	recent, _ := lru.New[string, time.Time](recentCacheSize)

	return &ValuationService{
		selector:     selector,
		store:        store,
		queryTimeout: opts.QueryTimeout,
		batchSizes: map[models.EntityKind]int{
			models.EntityCollection: opts.CollectionBatchSize,
			models.EntityDeck:       opts.DeckBatchSize,
		},
		now:     func() time.Time { return time.Now().UTC() },
		recent:  recent,
		limiter: rate.NewLimiter(opts.OnDemandRate, opts.OnDemandBurst),
	}
}

// BatchSize returns the configured selector batch size of an entity kind
func (v *ValuationService) BatchSize(kind models.EntityKind) int {
	return v.batchSizes[kind]
}

// RunBatch selects stale entities of one kind, aggregates them and upserts the rows.
// Any store error aborts the run; entities not yet written stay stale for the next run.
func (v *ValuationService) RunBatch(ctx context.Context, kind models.EntityKind) (RunResult, error) {
	start := time.Now()
	result := RunResult{RunID: uuid.NewString(), Kind: kind}

	policy, err := PolicyFor(kind)
	if err != nil {
		return result, err
	}

	err = v.runBatch(ctx, policy, &result)
	result.Duration = time.Since(start)
	metrics.AggregateRunDuration.WithLabelValues(string(kind)).Observe(result.Duration.Seconds())
	if err != nil {
		metrics.AggregateRunsTotal.WithLabelValues(string(kind), "failed").Inc()
		log.Printf("Aggregate run %s: %s batch failed after selecting %d: %v", result.RunID, kind, result.Selected, err)
		return result, err
	}
	metrics.AggregateRunsTotal.WithLabelValues(string(kind), "success").Inc()
	return result, nil
}

func (v *ValuationService) runBatch(ctx context.Context, policy StalenessPolicy, result *RunResult) error {
	selectCtx, cancel := context.WithTimeout(ctx, v.queryTimeout)
	ids, err := v.selector.SelectStale(selectCtx, policy, v.batchSizes[policy.Kind])
	cancel()
	if err != nil {
		return err
	}
	result.Selected = len(ids)
	metrics.AggregateEntitiesSelected.WithLabelValues(string(policy.Kind)).Add(float64(len(ids)))

	if len(ids) == 0 {
		log.Printf("Aggregate run %s: no stale %s entities", result.RunID, policy.Kind)
		return nil
	}
	log.Printf("Aggregate run %s: recomputing %d %s entities", result.RunID, len(ids), policy.Kind)

	upserted, err := v.recompute(ctx, policy, ids)
	if err != nil {
		return err
	}
	result.Upserted = upserted
	metrics.AggregateRowsUpserted.WithLabelValues(string(policy.Kind)).Add(float64(upserted))

	log.Printf("Aggregate run %s: upserted %d rows for %d %s entities", result.RunID, upserted, len(ids), policy.Kind)
	return nil
}

// recompute loads, aggregates and upserts the given entities, returning the row count written
func (v *ValuationService) recompute(ctx context.Context, policy StalenessPolicy, ids []string) (int, error) {
	loadCtx, cancel := context.WithTimeout(ctx, v.queryTimeout)
	lines, err := v.store.LoadJoinedLines(loadCtx, policy, ids)
	cancel()
	if err != nil {
		return 0, err
	}

	rows := AggregateEntities(ids, lines)

	upsertCtx, cancel := context.WithTimeout(ctx, v.queryTimeout)
	defer cancel()
	if err := v.store.UpsertAggregates(upsertCtx, policy.Kind, rows, v.now()); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// RecomputeEntity recomputes one existing entity regardless of the debounce window.
// It draws from the same limiter as on-demand reads.
func (v *ValuationService) RecomputeEntity(ctx context.Context, kind models.EntityKind, entityID string) error {
	policy, err := PolicyFor(kind)
	if err != nil {
		return err
	}

	queryCtx, cancel := context.WithTimeout(ctx, v.queryTimeout)
	exists, err := v.store.EntityExists(queryCtx, policy, entityID)
	cancel()
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s %s", ErrEntityNotFound, kind, entityID)
	}

	if !v.limiter.Allow() {
		metrics.OnDemandRequestsTotal.WithLabelValues(string(kind), string(OnDemandThrottled)).Inc()
		return ErrRecomputeThrottled
	}
	if _, err := v.recompute(ctx, policy, []string{entityID}); err != nil {
		return err
	}
	v.recent.Add(recentKey(kind, entityID), v.now())
	return nil
}

// GetEntityPrices serves an entity's stored aggregate rows, first recomputing them when the
// newest row is older than the debounce window and the on-demand limiter allows it
func (v *ValuationService) GetEntityPrices(ctx context.Context, kind models.EntityKind, entityID string) ([]models.AggregatePrice, OnDemandOutcome, error) {
	policy, err := PolicyFor(kind)
	if err != nil {
		return nil, "", err
	}

	queryCtx, cancel := context.WithTimeout(ctx, v.queryTimeout)
	defer cancel()

	exists, err := v.store.EntityExists(queryCtx, policy, entityID)
	if err != nil {
		return nil, "", err
	}
	if !exists {
		return nil, "", fmt.Errorf("%w: %s %s", ErrEntityNotFound, kind, entityID)
	}

	outcome, err := v.maybeRecompute(queryCtx, policy, entityID)
	if err != nil {
		return nil, "", err
	}
	metrics.OnDemandRequestsTotal.WithLabelValues(string(kind), string(outcome)).Inc()

	prices, err := v.store.GetAggregatePrices(queryCtx, kind, entityID)
	if err != nil {
		return nil, "", err
	}
	return prices, outcome, nil
}

func (v *ValuationService) maybeRecompute(ctx context.Context, policy StalenessPolicy, entityID string) (OnDemandOutcome, error) {
	now := v.now()
	key := recentKey(policy.Kind, entityID)

	if at, ok := v.recent.Get(key); ok && now.Sub(at) < OnDemandDebounce {
		return OnDemandDebounced, nil
	}

	last, found, err := v.store.LastAggregatedAt(ctx, policy.Kind, entityID)
	if err != nil {
		return "", err
	}
	if found && now.Sub(last) < OnDemandDebounce {
		return OnDemandDebounced, nil
	}

	if !v.limiter.Allow() {
		return OnDemandThrottled, nil
	}

	if _, err := v.recompute(ctx, policy, []string{entityID}); err != nil {
		return "", err
	}
	v.recent.Add(key, now)
	return OnDemandRecomputed, nil
}

func recentKey(kind models.EntityKind, entityID string) string {
	return string(kind) + ":" + entityID
}
