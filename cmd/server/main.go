package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/the-medo/swu-collection/backend/internal/api"
	"github.com/the-medo/swu-collection/backend/internal/config"
	"github.com/the-medo/swu-collection/backend/internal/database"
	"github.com/the-medo/swu-collection/backend/internal/services"
)

func main() {
	cfg := config.Load()

	// Initialize database
	if err := database.Initialize(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	// Initialize services
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
	ownership := services.NewOwnershipStore(db)
	aggregateWorker := services.NewAggregateWorker(valuation, cfg.AggregateInterval)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start aggregate worker in background with panic recovery
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("PANIC in aggregate worker: %v - restarting in 30 seconds", r)
					}
				}()
				aggregateWorker.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return // Graceful shutdown
			case <-time.After(30 * time.Second):
				log.Println("Aggregate worker restarting after panic recovery...")
			}
		}
	}()

	router := api.SetupRouter(cfg.CORSOrigins, valuation, ownership, aggregateWorker)

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop the aggregate worker
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
