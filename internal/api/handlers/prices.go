package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/the-medo/swu-collection/backend/internal/models"
	"github.com/the-medo/swu-collection/backend/internal/services"
)

type PriceHandler struct {
	valuation *services.ValuationService
	worker    *services.AggregateWorker
}

func NewPriceHandler(valuation *services.ValuationService, worker *services.AggregateWorker) *PriceHandler {
	return &PriceHandler{
		valuation: valuation,
		worker:    worker,
	}
}

// GetEntityPrices serves the aggregate rows of one collection or deck, recomputing them first
// when they are older than the debounce window
func (h *PriceHandler) GetEntityPrices(kind models.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID := c.Param("id")
		if entityID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}

		prices, outcome, err := h.valuation.GetEntityPrices(c.Request.Context(), kind, entityID)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		if prices == nil {
			prices = []models.AggregatePrice{}
		}

		c.JSON(http.StatusOK, models.EntityPricesResponse{
			EntityID:   entityID,
			EntityKind: kind,
			Recomputed: outcome == services.OnDemandRecomputed,
			Outcome:    string(outcome),
			Prices:     prices,
		})
	}
}

// RefreshEntityPrices recomputes one entity regardless of the debounce window
func (h *PriceHandler) RefreshEntityPrices(kind models.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID := c.Param("id")

		if err := h.valuation.RecomputeEntity(c.Request.Context(), kind, entityID); err != nil {
			writeServiceError(c, err)
			return
		}

		prices, _, err := h.valuation.GetEntityPrices(c.Request.Context(), kind, entityID)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.EntityPricesResponse{
			EntityID:   entityID,
			EntityKind: kind,
			Recomputed: true,
			Outcome:    string(services.OnDemandRecomputed),
			Prices:     prices,
		})
	}
}

// GetAggregateStatus returns the background worker's last run per entity kind
func (h *PriceHandler) GetAggregateStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.worker.GetStatus())
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEntityNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrRecomputeThrottled):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidQuantity), errors.Is(err, services.ErrInvalidCondition),
		errors.Is(err, models.ErrUnknownEntityKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("API: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
