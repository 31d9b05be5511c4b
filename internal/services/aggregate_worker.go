package services

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/the-medo/swu-collection/backend/internal/models"
)

const defaultAggregateInterval = 5 * time.Minute

// KindStatus is the outcome of the last run for one entity kind
type KindStatus struct {
	Kind         models.EntityKind `json:"kind"`
	BatchSize    int               `json:"batch_size"`
	LastRunID    string            `json:"last_run_id,omitempty"`
	LastRunTime  time.Time         `json:"last_run_time"`
	LastSelected int               `json:"last_selected"`
	LastUpserted int               `json:"last_upserted"`
	LastError    string            `json:"last_error,omitempty"`
	RunsToday    int               `json:"runs_today"`
}

// AggregateStatus is the worker state exposed on the status endpoint
type AggregateStatus struct {
	Interval       string       `json:"interval"`
	LastUpdateTime time.Time    `json:"last_update_time"`
	NextUpdateTime time.Time    `json:"next_update_time"`
	Kinds          []KindStatus `json:"kinds"`
}

// AggregateWorker periodically recomputes stale collection and deck summaries
type AggregateWorker struct {
	valuation      *ValuationService
	updateInterval time.Duration

	mu             sync.RWMutex
	lastUpdateTime time.Time
	lastStatsDay   time.Time
	kinds          map[models.EntityKind]*KindStatus
}

func NewAggregateWorker(valuation *ValuationService, interval time.Duration) *AggregateWorker {
	if interval <= 0 {
		interval = defaultAggregateInterval
	}
	kinds := make(map[models.EntityKind]*KindStatus)
	for _, kind := range models.AllEntityKinds() {
		kinds[kind] = &KindStatus{Kind: kind, BatchSize: valuation.BatchSize(kind)}
	}
	return &AggregateWorker{
		valuation:      valuation,
		updateInterval: interval,
		kinds:          kinds,
	}
}

// Start begins the background aggregation worker
func (w *AggregateWorker) Start(ctx context.Context) {
	log.Printf("Aggregate worker started: will recompute stale collections and decks every %v", w.updateInterval)

	// Run immediately on startup
	if err := w.RunOnce(ctx); err != nil {
		log.Printf("Aggregate worker: initial run failed: %v", err)
	}

	ticker := time.NewTicker(w.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Aggregate worker stopping...")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				log.Printf("Aggregate worker: run failed: %v", err)
			}
		}
	}
}

// RunOnce runs one batch per entity kind concurrently. A failing kind does not stop the
// other; the first error is returned after both finish.
func (w *AggregateWorker) RunOnce(ctx context.Context) error {
	w.resetDailyStatsIfNeeded()

	var g errgroup.Group
	for _, kind := range models.AllEntityKinds() {
		kind := kind
		g.Go(func() error {
			result, err := w.valuation.RunBatch(ctx, kind)
			w.record(kind, result, err)
			return err
		})
	}
	err := g.Wait()

	w.mu.Lock()
	w.lastUpdateTime = time.Now()
	w.mu.Unlock()
	return err
}

func (w *AggregateWorker) record(kind models.EntityKind, result RunResult, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := w.kinds[kind]
	status.LastRunID = result.RunID
	status.LastRunTime = time.Now()
	status.LastSelected = result.Selected
	status.LastUpserted = result.Upserted
	status.RunsToday++
	status.LastError = ""
	if err != nil {
		status.LastError = err.Error()
	}
}

// resetDailyStatsIfNeeded resets run counters at midnight
func (w *AggregateWorker) resetDailyStatsIfNeeded() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if w.lastStatsDay.Before(today) {
		for _, status := range w.kinds {
			status.RunsToday = 0
		}
		w.lastStatsDay = today
	}
}

// GetStatus returns the current status
func (w *AggregateWorker) GetStatus() AggregateStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := AggregateStatus{
		Interval:       w.updateInterval.String(),
		LastUpdateTime: w.lastUpdateTime,
		NextUpdateTime: w.lastUpdateTime.Add(w.updateInterval),
	}
	for _, kind := range models.AllEntityKinds() {
		status.Kinds = append(status.Kinds, *w.kinds[kind])
	}
	return status
}
