// Command aggregate runs one staleness-driven aggregation batch and exits.
// It is meant for cron-style scheduling; a failed run exits with status 1 and
// the same stale entities are picked up by the next invocation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/the-medo/swu-collection/backend/internal/config"
	"github.com/the-medo/swu-collection/backend/internal/database"
	"github.com/the-medo/swu-collection/backend/internal/models"
	"github.com/the-medo/swu-collection/backend/internal/services"
)

func main() {
	cfg := config.Load()

	dbPath := flag.String("db", cfg.DBPath, "Path to the sqlite database")
	kindFlag := flag.String("kind", "all", "Entity kind to aggregate: collection, deck or all")
	flag.Parse()

	kinds, err := parseKinds(*kindFlag)
	if err != nil {
		log.Fatalf("Invalid -kind: %v", err)
	}

	if err := database.Initialize(*dbPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	valuation := services.NewValuationService(
		services.NewStalenessSelector(db),
		services.NewAggregateStore(db),
		services.ValuationOptions{
			QueryTimeout:        cfg.AggregateQueryTimeout,
			CollectionBatchSize: cfg.CollectionBatchSize,
			DeckBatchSize:       cfg.DeckBatchSize,
			OnDemandRate:        rate.Limit(cfg.OnDemandRatePerSecond),
			OnDemandBurst:       cfg.OnDemandBurst,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := false
	for _, kind := range kinds {
		result, err := valuation.RunBatch(ctx, kind)
		if err != nil {
			log.Printf("Aggregate %s: failed: %v", kind, err)
			failed = true
			continue
		}
		log.Printf("Aggregate %s: run %s selected %d, upserted %d rows in %v",
			kind, result.RunID, result.Selected, result.Upserted, result.Duration)
	}

	if failed {
		stop()
		os.Exit(1)
	}
}

func parseKinds(s string) ([]models.EntityKind, error) {
	if s == "all" {
		return models.AllEntityKinds(), nil
	}
	kind, err := models.ParseEntityKind(s)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", s, err)
	}
	return []models.EntityKind{kind}, nil
}
