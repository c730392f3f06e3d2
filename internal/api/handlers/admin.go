package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-catalog/internal/models"
	"github.com/codyseavey/card-catalog/internal/services"
)

type AdminHandler struct {
	banListService *services.BanListService
}

func NewAdminHandler(banListService *services.BanListService) *AdminHandler {
	return &AdminHandler{
		banListService: banListService,
	}
}

// ApplyBanListBatch applies a batch of ban-list changes. Items that fail are
// reported in the results; the request only fails as a whole when the body
// itself is unusable.
func (h *AdminHandler) ApplyBanListBatch(c *gin.Context) {
	var req models.BanListBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.banListService.Apply(c.Request.Context(), req.Updates)
	if errors.Is(err, services.ErrEmptyBatch) || errors.Is(err, services.ErrBatchTooLarge) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("Admin: ban-list batch failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateCard edits gameplay attributes of a card and its alternates.
func (h *AdminHandler) UpdateCard(c *gin.Context) {
	var attrs models.CardAttributes
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.banListService.UpdateAttributes(c.Request.Context(), c.Param("id"), attrs)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, services.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
	case errors.Is(err, services.ErrEmptyCardID),
		errors.Is(err, services.ErrNoAttributes),
		errors.Is(err, services.ErrNegativeValue):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("Admin: failed to update card %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
