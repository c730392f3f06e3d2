package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-catalog/internal/models"
	"github.com/codyseavey/card-catalog/internal/services"
)

// CardLookup finds a single card in the authoritative store.
type CardLookup interface {
	GetCard(ctx context.Context, id string) (*models.Card, error)
}

type CatalogHandler struct {
	cache *services.CatalogCache
	store CardLookup
}

// NewCatalogHandler creates the catalog read handler. store may be nil, in
// which case card lookups only consult the cache.
func NewCatalogHandler(cache *services.CatalogCache, store CardLookup) *CatalogHandler {
	return &CatalogHandler{
		cache: cache,
		store: store,
	}
}

// GetCatalog returns the catalog, optionally with alternates split out and
// optionally narrowed to the cards on one format's ban list.
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	includeAlternates := false
	if raw := c.Query("includeAlternates"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "includeAlternates must be true or false"})
			return
		}
		includeAlternates = parsed
	}

	var format models.Format
	if raw := c.Query("format"); raw != "" {
		parsed, ok := models.ParseFormat(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrInvalidFormat.Error()})
			return
		}
		format = parsed
	}

	partition := models.PartitionFor(includeAlternates)
	snap := h.snapshot(c.Request.Context(), partition)

	resp := models.CatalogResponse{
		Cards:   []models.Card{},
		Version: snap.Version,
		Source:  snap.Source,
	}
	var alternates []models.Card
	for _, card := range snap.Cards {
		if format != "" && card.BanList(format) == models.SeverityUnrestricted {
			continue
		}
		if card.IsAlternate {
			alternates = append(alternates, card)
			continue
		}
		resp.Cards = append(resp.Cards, card)
	}
	resp.Total = len(resp.Cards)
	if includeAlternates {
		if alternates == nil {
			alternates = []models.Card{}
		}
		total := len(alternates)
		resp.AlternateCards = alternates
		resp.TotalAlternates = &total
	}

	c.JSON(http.StatusOK, resp)
}

// snapshot returns fresh data for partition, or the best data on hand when
// the request's context ends first.
func (h *CatalogHandler) snapshot(ctx context.Context, partition models.Partition) *services.PartitionSnapshot {
	snap, err := h.cache.EnsureFreshSnapshot(ctx, partition)
	if err == nil {
		return snap
	}
	if existing := h.cache.Snapshot(partition); existing != nil {
		return existing
	}
	return &services.PartitionSnapshot{
		Cards:  h.cache.Get(partition),
		Source: services.SourceFallback,
	}
}

// GetCard returns one card by id, alternates included.
func (h *CatalogHandler) GetCard(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card id is required"})
		return
	}

	snap := h.snapshot(c.Request.Context(), models.PartitionWithAlternates)
	for i := range snap.Cards {
		if snap.Cards[i].ID == id {
			c.JSON(http.StatusOK, snap.Cards[i])
			return
		}
	}

	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}

	// Cache miss; the fallback may be serving, so ask the store directly.
	card, err := h.store.GetCard(c.Request.Context(), id)
	if errors.Is(err, services.ErrCardNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}
	if err != nil {
		log.Printf("Catalog: failed to look up card %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up card"})
		return
	}
	c.JSON(http.StatusOK, card)
}

// GetVersion returns the current global catalog version
func (h *CatalogHandler) GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": h.cache.Version()})
}

// GetStatus reports each partition's cached state.
func (h *CatalogHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    h.cache.Version(),
		"degraded":   h.cache.Degraded(),
		"partitions": h.cache.Status(),
	})
}
