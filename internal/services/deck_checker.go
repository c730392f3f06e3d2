package services

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/codyseavey/card-catalog/internal/metrics"
	"github.com/codyseavey/card-catalog/internal/models"
)

// DeckChecker validates deck lists against the current ban lists. It reads
// through a CatalogConsumer so a check never waits on the store.
type DeckChecker struct {
	consumer  *CatalogConsumer
	copyLimit int

	index atomic.Pointer[deckIndex]
}

// deckIndex is the id lookup built from one consumer generation.
type deckIndex struct {
	generation uint64
	version    uint64
	byID       map[string]*models.Card
}

// NewDeckChecker creates a checker. consumer should read the with-alternates
// partition so alternate ids resolve.
func NewDeckChecker(consumer *CatalogConsumer, copyLimit int) *DeckChecker {
	if copyLimit <= 0 {
		copyLimit = models.DefaultCopyLimit
	}
	return &DeckChecker{
		consumer:  consumer,
		copyLimit: copyLimit,
	}
}

// currentIndex returns the lookup for the consumer's current data, rebuilding
// it only when the consumer's generation moved.
func (d *DeckChecker) currentIndex() *deckIndex {
	state := d.consumer.State()
	if idx := d.index.Load(); idx != nil && idx.generation == state.Generation && idx.byID != nil {
		return idx
	}

	idx := &deckIndex{
		generation: state.Generation,
		version:    state.Version,
		byID:       make(map[string]*models.Card, len(state.Cards)),
	}
	for i := range state.Cards {
		idx.byID[state.Cards[i].ID] = &state.Cards[i]
	}
	d.index.Store(idx)
	return idx
}

// Validate checks every entry's copy count, summed across a base card and its
// alternates, against the format's ban list.
func (d *DeckChecker) Validate(format models.Format, entries []models.DeckEntry) (*models.DeckValidationResponse, error) {
	parsed, ok := models.ParseFormat(string(format))
	if !ok {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidFormat, format)
	}

	idx := d.currentIndex()
	resp := &models.DeckValidationResponse{
		Format:         parsed,
		Violations:     []models.DeckViolation{},
		CatalogVersion: idx.version,
	}

	type baseTally struct {
		name     string
		quantity int
		severity models.Severity
	}
	tallies := make(map[string]*baseTally)

	for _, entry := range entries {
		cardID := strings.TrimSpace(entry.CardID)
		qty := entry.Quantity
		if qty <= 0 {
			qty = 1
		}
		resp.TotalCards += qty

		card, found := idx.byID[cardID]
		if !found {
			resp.UnknownCards = append(resp.UnknownCards, cardID)
			continue
		}

		t, exists := tallies[card.BaseID]
		if !exists {
			t = &baseTally{name: card.Name, severity: card.BanList(parsed)}
			tallies[card.BaseID] = t
		}
		t.quantity += qty
		// Alternates should match their base; if they drifted, the strictest wins.
		if s := card.BanList(parsed); s < t.severity {
			t.severity = s
		}
	}

	for baseID, t := range tallies {
		allowed := t.severity.MaxCopies(d.copyLimit)
		if t.quantity <= allowed {
			continue
		}
		reason := fmt.Sprintf("limited to %d in %s", allowed, parsed)
		if t.severity == models.SeverityBanned {
			reason = fmt.Sprintf("banned in %s", parsed)
		} else if t.severity == models.SeverityUnrestricted {
			reason = fmt.Sprintf("at most %d copies per deck", allowed)
		}
		resp.Violations = append(resp.Violations, models.DeckViolation{
			BaseID:   baseID,
			Name:     t.name,
			Quantity: t.quantity,
			Allowed:  allowed,
			Severity: t.severity,
			Reason:   reason,
		})
	}

	sort.Slice(resp.Violations, func(i, j int) bool { return resp.Violations[i].BaseID < resp.Violations[j].BaseID })
	sort.Strings(resp.UnknownCards)

	resp.Legal = len(resp.Violations) == 0 && len(resp.UnknownCards) == 0
	result := "legal"
	if !resp.Legal {
		result = "illegal"
	}
	metrics.DeckValidationsTotal.WithLabelValues(string(parsed), result).Inc()

	return resp, nil
}
