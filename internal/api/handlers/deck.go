package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-catalog/internal/models"
	"github.com/codyseavey/card-catalog/internal/services"
)

// Maximum entries accepted in one deck list
const maxDeckEntries = 200

type DeckHandler struct {
	checker *services.DeckChecker
}

func NewDeckHandler(checker *services.DeckChecker) *DeckHandler {
	return &DeckHandler{
		checker: checker,
	}
}

// ValidateDeck checks a deck list against the current ban list of a format.
func (h *DeckHandler) ValidateDeck(c *gin.Context) {
	var req models.DeckValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Cards) > maxDeckEntries {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deck list exceeds maximum allowed entries (200)"})
		return
	}

	resp, err := h.checker.Validate(req.Format, req.Cards)
	if errors.Is(err, services.ErrInvalidFormat) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
