package services

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/codyseavey/card-catalog/internal/models"
)

//go:embed data/fallback_catalog.json
var bundledCatalog []byte

// FallbackCatalog is the immutable snapshot served when the store is
// unreachable or before the first fetch lands. It never does I/O after load.
type FallbackCatalog struct {
	baseOnly       []models.Card
	withAlternates []models.Card
}

// NewFallbackCatalog loads the catalog bundled into the binary, or the JSON
// file at path when one is given.
func NewFallbackCatalog(path string) (*FallbackCatalog, error) {
	if path == "" {
		return LoadFallbackCatalog(bytes.NewReader(bundledCatalog))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fallback catalog: %w", err)
	}
	defer f.Close()

	fc, err := LoadFallbackCatalog(f)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded fallback catalog from %s (%d cards)", path, fc.Count())
	return fc, nil
}

// LoadFallbackCatalog decodes a JSON array of cards.
func LoadFallbackCatalog(r io.Reader) (*FallbackCatalog, error) {
	var cards []models.Card
	if err := json.NewDecoder(r).Decode(&cards); err != nil {
		return nil, fmt.Errorf("failed to decode fallback catalog: %w", err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("fallback catalog is empty")
	}

	seen := make(map[string]bool, len(cards))
	fc := &FallbackCatalog{
		withAlternates: make([]models.Card, 0, len(cards)),
	}
	for _, card := range cards {
		if card.ID == "" {
			return nil, fmt.Errorf("fallback catalog has a card without id")
		}
		if seen[card.ID] {
			return nil, fmt.Errorf("fallback catalog has duplicate id %s", card.ID)
		}
		seen[card.ID] = true

		card.BaseID = models.BaseCardID(card.ID)
		card.IsAlternate = card.BaseID != card.ID
		for _, format := range models.AllFormats() {
			if !card.BanList(format).Valid() {
				return nil, fmt.Errorf("fallback card %s has invalid %s severity %d", card.ID, format, card.BanList(format))
			}
		}

		fc.withAlternates = append(fc.withAlternates, card)
		if !card.IsAlternate {
			fc.baseOnly = append(fc.baseOnly, card)
		}
	}

	sort.Slice(fc.withAlternates, func(i, j int) bool { return fc.withAlternates[i].ID < fc.withAlternates[j].ID })
	sort.Slice(fc.baseOnly, func(i, j int) bool { return fc.baseOnly[i].ID < fc.baseOnly[j].ID })

	return fc, nil
}

// Cards returns the fallback slice for a partition. Callers must not modify it.
func (f *FallbackCatalog) Cards(partition models.Partition) []models.Card {
	if partition.IncludesAlternates() {
		return f.withAlternates
	}
	return f.baseOnly
}

// All returns a copy of every card, alternates included, for seeding a store.
func (f *FallbackCatalog) All() []models.Card {
	out := make([]models.Card, len(f.withAlternates))
	copy(out, f.withAlternates)
	return out
}

// Count returns the number of cards including alternates.
func (f *FallbackCatalog) Count() int {
	return len(f.withAlternates)
}

// FetchCatalog lets the fallback stand in as a CatalogFetcher.
func (f *FallbackCatalog) FetchCatalog(_ context.Context, includeAlternates bool) ([]models.Card, error) {
	return f.Cards(models.PartitionFor(includeAlternates)), nil
}
