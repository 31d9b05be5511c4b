package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/the-medo/swu-collection/backend/internal/api/handlers"
	"github.com/the-medo/swu-collection/backend/internal/models"
	"github.com/the-medo/swu-collection/backend/internal/services"
)

func SetupRouter(corsOrigins []string, valuation *services.ValuationService, ownership *services.OwnershipStore, worker *services.AggregateWorker) *gin.Engine {
	router := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = corsOrigins
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false
	router.Use(cors.New(config))
	router.Use(metricsMiddleware())

	priceHandler := handlers.NewPriceHandler(valuation, worker)
	ownershipHandler := handlers.NewOwnershipHandler(ownership)

	api := router.Group("/api")
	{
		entities := map[string]models.EntityKind{
			"/collections": models.EntityCollection,
			"/decks":       models.EntityDeck,
		}
		for prefix, kind := range entities {
			group := api.Group(prefix)
			group.GET("/:id/prices", priceHandler.GetEntityPrices(kind))
			group.POST("/:id/prices/refresh", priceHandler.RefreshEntityPrices(kind))
			group.POST("/:id/cards", ownershipHandler.AddCard(kind))
		}

		api.GET("/aggregates/status", priceHandler.GetAggregateStatus)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
