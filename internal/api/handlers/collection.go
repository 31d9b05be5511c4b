package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/the-medo/swu-collection/backend/internal/models"
	"github.com/the-medo/swu-collection/backend/internal/services"
)

type OwnershipHandler struct {
	ownership *services.OwnershipStore
}

func NewOwnershipHandler(ownership *services.OwnershipStore) *OwnershipHandler {
	return &OwnershipHandler{ownership: ownership}
}

// AddCard changes the quantity of one ownership line. A missing quantity means one copy;
// a negative quantity removes copies.
func (h *OwnershipHandler) AddCard(kind models.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID := c.Param("id")

		var req models.AddCardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !req.Condition.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "condition must be between 0 (mint) and 6 (poor)"})
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		if req.Language != "" {
			req.Language = models.NormalizeLanguage(string(req.Language))
		}

		line := models.OwnershipLine{
			EntityID:  entityID,
			CardID:    req.CardID,
			VariantID: req.VariantID,
			Foil:      req.Foil,
			Condition: req.Condition,
			Language:  req.Language,
			Note:      req.Note,
		}

		quantity, err := h.ownership.AddQuantity(c.Request.Context(), kind, line, req.Quantity)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.AddCardResponse{
			EntityID: entityID,
			Quantity: quantity,
		})
	}
}
