package services

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/codyseavey/card-catalog/internal/metrics"
	"github.com/codyseavey/card-catalog/internal/models"
)

const defaultPollInterval = 30 * time.Second

// ConsumerState is what a reader of the catalog sees at a point in time.
type ConsumerState struct {
	Cards      []models.Card
	IsLoading  bool
	Err        error
	Version    uint64
	Source     string
	Generation uint64
}

// CatalogConsumer is the read-side accessor used across the application. It
// always has cards to hand out (the fallback catalog until the first refresh
// lands) and swaps in authoritative data in the background.
type CatalogConsumer struct {
	cache        *CatalogCache
	broadcaster  *Broadcaster
	partition    models.Partition
	pollInterval time.Duration

	mu        sync.RWMutex
	state     ConsumerState
	stale     bool
	delivered bool // first successful refresh was emitted

	updates chan ConsumerState
}

// NewCatalogConsumer creates a consumer for one partition. Call Start to
// begin refreshing.
func NewCatalogConsumer(cache *CatalogCache, broadcaster *Broadcaster, includeAlternates bool, pollInterval time.Duration) *CatalogConsumer {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	partition := models.PartitionFor(includeAlternates)

	state := ConsumerState{
		Cards:     cache.Get(partition),
		IsLoading: true,
		Source:    SourceFallback,
	}
	if snap := cache.Snapshot(partition); snap != nil {
		state.Version = snap.Version
		state.Source = snap.Source
		state.Generation = snap.Generation
	}

	return &CatalogConsumer{
		cache:        cache,
		broadcaster:  broadcaster,
		partition:    partition,
		pollInterval: pollInterval,
		state:        state,
		stale:        true,
		updates:      make(chan ConsumerState, 1),
	}
}

// State returns the current view. It never blocks on I/O and Cards is never empty.
func (c *CatalogConsumer) State() ConsumerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Cards is shorthand for State().Cards.
func (c *CatalogConsumer) Cards() []models.Card {
	return c.State().Cards
}

// Partition returns the partition this consumer reads.
func (c *CatalogConsumer) Partition() models.Partition {
	return c.partition
}

// Updates delivers the new state after the first successful refresh and then
// once per change of cards or source. Only the newest state is kept for a
// slow reader.
func (c *CatalogConsumer) Updates() <-chan ConsumerState {
	return c.updates
}

// Start refreshes once, then follows invalidation signals until ctx is done.
// A poll ticker re-checks the global version as a safety net for signals
// that were missed.
func (c *CatalogConsumer) Start(ctx context.Context) {
	events, unsubscribe := c.broadcaster.Subscribe()
	defer unsubscribe()

	c.Refresh(ctx, "start")

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if c.markStale(ev.NewVersion) {
				c.Refresh(ctx, "signal")
			}
		case <-ticker.C:
			if c.markStale(c.broadcaster.Version()) {
				c.Refresh(ctx, "poll")
			}
		}
	}
}

// markStale drops the consumer's claim on its data if version is newer than
// what it last saw. Returns whether a refresh is needed.
func (c *CatalogConsumer) markStale(version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stale && version <= c.state.Version {
		return false
	}
	c.stale = true
	c.state.IsLoading = true
	return true
}

// Refresh brings the consumer up to date with the cache. Safe to call
// concurrently with State; calls that find nothing new emit nothing.
func (c *CatalogConsumer) Refresh(ctx context.Context, trigger string) {
	metrics.ConsumerRefreshesTotal.WithLabelValues(trigger).Inc()

	snap, err := c.cache.EnsureFreshSnapshot(ctx, c.partition)

	c.mu.Lock()
	if err != nil {
		// Keep whatever we were showing; the next signal or tick retries.
		c.state.Err = err
		c.state.IsLoading = false
		c.mu.Unlock()
		if ctx.Err() == nil {
			log.Printf("Catalog consumer (%s): refresh failed: %v", c.partition, err)
		}
		return
	}

	// A refetch that came back with the same cards is not a change.
	changed := !c.delivered ||
		(snap.Generation != c.state.Generation &&
			(snap.Source != c.state.Source || !slices.Equal(snap.Cards, c.state.Cards)))
	c.delivered = true
	c.state = ConsumerState{
		Cards:      snap.Cards,
		IsLoading:  false,
		Version:    snap.Version,
		Source:     snap.Source,
		Generation: snap.Generation,
	}
	c.stale = snap.Version < c.broadcaster.Version()
	state := c.state
	c.mu.Unlock()

	if changed {
		sendLatest(c.updates, state)
	}
}
