package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codyseavey/card-catalog/internal/metrics"
	"github.com/codyseavey/card-catalog/internal/models"
)

const defaultMaxBatch = 500

var (
	ErrEmptyBatch    = errors.New("updates must contain at least one item")
	ErrBatchTooLarge = errors.New("too many updates in one batch")
	ErrNoAttributes  = errors.New("no attributes to update")
	ErrNegativeValue = errors.New("cost and power must not be negative")
)

// BanListService applies admin edits to the catalog store and invalidates
// the catalog cache once per request.
type BanListService struct {
	store       CatalogWriter
	broadcaster *Broadcaster
	maxBatch    int
}

// NewBanListService creates the admin mutation pipeline
func NewBanListService(store CatalogWriter, broadcaster *Broadcaster, maxBatch int) *BanListService {
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatch
	}
	return &BanListService{
		store:       store,
		broadcaster: broadcaster,
		maxBatch:    maxBatch,
	}
}

// banListGroup is every requested update that targets the same base card and format.
type banListGroup struct {
	baseID  string
	format  models.Format
	value   models.Severity
	members []int // indexes into the results slice
}

type groupKey struct {
	baseID string
	format models.Format
}

// Apply validates every update, collapses them into one write per
// (base card, format), applies the writes in request order and then
// invalidates the catalog exactly once. Item failures never abort the batch.
// When the same base card and format appear more than once the last value wins.
func (s *BanListService) Apply(ctx context.Context, updates []models.BanListUpdate) (*models.BanListBatchResponse, error) {
	if len(updates) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(updates) > s.maxBatch {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrBatchTooLarge, len(updates), s.maxBatch)
	}

	start := time.Now()
	batchID := uuid.New().String()
	results := make([]models.MutationResult, len(updates))

	groups := make([]*banListGroup, 0, len(updates))
	byKey := make(map[groupKey]*banListGroup, len(updates))

	for i, u := range updates {
		cardID := strings.TrimSpace(u.CardID)
		results[i] = models.MutationResult{
			CardID: cardID,
			Format: u.Format,
			Value:  u.Value,
		}

		format, err := validateUpdate(cardID, u)
		if err != nil {
			results[i].Error = err.Error()
			metrics.BanListUpdatesTotal.WithLabelValues(string(u.Format), "invalid").Inc()
			continue
		}

		baseID := models.BaseCardID(cardID)
		results[i].BaseID = baseID
		results[i].Format = format

		key := groupKey{baseID: baseID, format: format}
		g, ok := byKey[key]
		if !ok {
			g = &banListGroup{baseID: baseID, format: format}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.value = u.Value
		g.members = append(g.members, i)
	}

	for _, g := range groups {
		affected, err := s.store.SetBanList(ctx, g.baseID, g.format, g.value)
		for _, i := range g.members {
			if err != nil {
				results[i].Error = err.Error()
				continue
			}
			results[i].Success = true
			results[i].Affected = affected
		}
		outcome := "success"
		if err != nil {
			outcome = "failed"
			log.Printf("Ban list: batch %s failed to set %s=%d for %s: %v", batchID, g.format, g.value, g.baseID, err)
		}
		metrics.BanListUpdatesTotal.WithLabelValues(string(g.format), outcome).Add(float64(len(g.members)))
	}

	version := s.broadcaster.Version()
	if len(groups) > 0 {
		version = s.broadcaster.Invalidate()
	}

	summary := models.MutationSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	metrics.BanListBatchesTotal.Inc()
	metrics.BanListBatchDuration.Observe(time.Since(start).Seconds())
	log.Printf("Ban list: batch %s applied %d/%d updates in %d groups (catalog version %d)",
		batchID, summary.Successful, summary.Total, len(groups), version)

	return &models.BanListBatchResponse{
		Success: summary.Failed == 0,
		BatchID: batchID,
		Version: version,
		Results: results,
		Summary: summary,
	}, nil
}

// validateUpdate checks one item before any write is attempted for it.
func validateUpdate(cardID string, u models.BanListUpdate) (models.Format, error) {
	if cardID == "" {
		return "", ErrEmptyCardID
	}
	format, ok := models.ParseFormat(string(u.Format))
	if !ok {
		return "", fmt.Errorf("%w: got %q", ErrInvalidFormat, u.Format)
	}
	if !u.Value.Valid() {
		return "", fmt.Errorf("%w: got %d", ErrInvalidSeverity, u.Value)
	}
	return format, nil
}

// UpdateAttributes edits gameplay attributes of a card. Alternates share
// gameplay identity with their base card, so the edit lands on all of them.
func (s *BanListService) UpdateAttributes(ctx context.Context, cardID string, attrs models.CardAttributes) (*models.AttributeUpdateResponse, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, ErrEmptyCardID
	}
	if len(attrs.Columns()) == 0 {
		return nil, ErrNoAttributes
	}
	if (attrs.Cost != nil && *attrs.Cost < 0) || (attrs.Power != nil && *attrs.Power < 0) {
		return nil, ErrNegativeValue
	}

	baseID := models.BaseCardID(cardID)
	affected, err := s.store.UpdateAttributes(ctx, baseID, attrs)
	if err != nil {
		return nil, err
	}

	version := s.broadcaster.Invalidate()
	log.Printf("Card attributes: updated %s (%d rows, catalog version %d)", baseID, affected, version)

	return &models.AttributeUpdateResponse{
		BaseID:   baseID,
		Affected: affected,
		Version:  version,
	}, nil
}
