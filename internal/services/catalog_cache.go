package services

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/codyseavey/card-catalog/internal/metrics"
	"github.com/codyseavey/card-catalog/internal/models"
)

const (
	SourceStore    = "store"
	SourceFallback = "fallback"

	defaultFetchTimeout = 10 * time.Second
)

// PartitionSnapshot is one complete fetch result. Snapshots are replaced
// wholesale and never modified after they are published.
type PartitionSnapshot struct {
	Cards      []models.Card
	Version    uint64 // global version observed when the fetch started
	FetchedAt  time.Time
	Source     string
	Generation uint64 // unique per stored snapshot; changes iff the data was replaced
}

// PartitionStatus describes a cached partition for the status endpoint.
type PartitionStatus struct {
	Partition  models.Partition `json:"partition"`
	Cards      int              `json:"cards"`
	Version    uint64           `json:"version"`
	Fresh      bool             `json:"fresh"`
	Source     string           `json:"source"`
	FetchedAt  *time.Time       `json:"fetchedAt,omitempty"`
	Generation uint64           `json:"generation"`
}

// CatalogCache keeps the last fetched snapshot per partition and makes sure
// concurrent readers of a stale partition share a single store fetch.
type CatalogCache struct {
	store        CatalogFetcher
	fallback     *FallbackCatalog
	broadcaster  *Broadcaster
	now          func() time.Time
	fetchTimeout time.Duration

	// one in-flight fetch per partition@version
	group singleflight.Group

	// the map itself is fixed at construction; only the pointers move
	partitions map[models.Partition]*atomic.Pointer[PartitionSnapshot]
	generation atomic.Uint64
	degraded   atomic.Bool
}

// CacheOption customizes a CatalogCache
type CacheOption func(*CatalogCache)

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CatalogCache) { c.now = now }
}

// WithFetchTimeout bounds a single store fetch.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(c *CatalogCache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// NewCatalogCache wires the cache to its store, fallback and broadcaster.
func NewCatalogCache(store CatalogFetcher, fallback *FallbackCatalog, broadcaster *Broadcaster, opts ...CacheOption) *CatalogCache {
	c := &CatalogCache{
		store:        store,
		fallback:     fallback,
		broadcaster:  broadcaster,
		now:          time.Now,
		fetchTimeout: defaultFetchTimeout,
		partitions:   make(map[models.Partition]*atomic.Pointer[PartitionSnapshot]),
	}
	for _, p := range models.AllPartitions() {
		c.partitions[p] = &atomic.Pointer[PartitionSnapshot]{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the best data available right now without doing any I/O:
// the cached snapshot even if stale, otherwise the fallback catalog.
func (c *CatalogCache) Get(partition models.Partition) []models.Card {
	if snap := c.Snapshot(partition); snap != nil {
		return snap.Cards
	}
	return c.fallback.Cards(partition)
}

// Snapshot returns the stored snapshot for partition, or nil if it was never fetched.
func (c *CatalogCache) Snapshot(partition models.Partition) *PartitionSnapshot {
	ptr, ok := c.partitions[partition]
	if !ok {
		return nil
	}
	return ptr.Load()
}

// Version returns the current global catalog version.
func (c *CatalogCache) Version() uint64 {
	return c.broadcaster.Version()
}

// EnsureFresh returns authoritative data for partition. A snapshot stamped
// with the current version is returned without I/O; otherwise the caller
// joins the in-flight fetch for this version or starts it. Store failures
// are absorbed by serving the fallback catalog, so the only error returned
// is the caller's own context ending, in which case the best available data
// is returned alongside it.
func (c *CatalogCache) EnsureFresh(ctx context.Context, partition models.Partition) ([]models.Card, error) {
	snap, err := c.EnsureFreshSnapshot(ctx, partition)
	if err != nil {
		return c.Get(partition), err
	}
	return snap.Cards, nil
}

// EnsureFreshSnapshot is EnsureFresh returning the whole snapshot.
func (c *CatalogCache) EnsureFreshSnapshot(ctx context.Context, partition models.Partition) (*PartitionSnapshot, error) {
	ptr, ok := c.partitions[partition]
	if !ok {
		return nil, fmt.Errorf("unknown catalog partition %q", partition)
	}

	current := c.broadcaster.Version()
	if snap := ptr.Load(); snap != nil && snap.Version == current {
		metrics.CacheReadsTotal.WithLabelValues(string(partition), "hit").Inc()
		return snap, nil
	}

	key := fmt.Sprintf("%s@%d", partition, current)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetch(partition, current), nil
	})

	select {
	case res := <-ch:
		result := "fetch"
		if res.Shared {
			result = "shared"
		}
		metrics.CacheReadsTotal.WithLabelValues(string(partition), result).Inc()
		return res.Val.(*PartitionSnapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetch loads partition from the store and publishes the result. It runs
// detached from any caller's context so one impatient caller cannot fail
// the fetch for everyone sharing it.
func (c *CatalogCache) fetch(partition models.Partition, version uint64) *PartitionSnapshot {
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	start := time.Now()
	cards, err := c.store.FetchCatalog(ctx, partition.IncludesAlternates())
	if err == nil && len(cards) == 0 {
		err = ErrEmptyCatalog
	}
	metrics.CacheFetchDuration.WithLabelValues(string(partition)).Observe(time.Since(start).Seconds())

	source := SourceStore
	if err != nil {
		if c.degraded.CompareAndSwap(false, true) {
			log.Printf("Catalog cache: store fetch failed, serving fallback catalog: %v", err)
		}
		cards = c.fallback.Cards(partition)
		source = SourceFallback
		metrics.CacheFetchesTotal.WithLabelValues(string(partition), "fallback").Inc()
	} else {
		if c.degraded.CompareAndSwap(true, false) {
			log.Println("Catalog cache: store reachable again")
		}
		metrics.CacheFetchesTotal.WithLabelValues(string(partition), "success").Inc()
	}

	snap := &PartitionSnapshot{
		Cards:      cards,
		Version:    version,
		FetchedAt:  c.now(),
		Source:     source,
		Generation: c.generation.Add(1),
	}
	return c.publish(partition, snap)
}

// publish stores snap unless a snapshot for a newer version is already in
// place, and returns whichever snapshot callers should see.
func (c *CatalogCache) publish(partition models.Partition, snap *PartitionSnapshot) *PartitionSnapshot {
	ptr := c.partitions[partition]
	for {
		existing := ptr.Load()
		if existing != nil && existing.Version > snap.Version {
			// Superseded by a fetch for a later version; discard.
			return snap
		}
		if ptr.CompareAndSwap(existing, snap) {
			metrics.CachePartitionSize.WithLabelValues(string(partition)).Set(float64(len(snap.Cards)))
			return snap
		}
	}
}

// Degraded reports whether the last store fetch failed.
func (c *CatalogCache) Degraded() bool {
	return c.degraded.Load()
}

// Status reports every partition's cached state.
func (c *CatalogCache) Status() []PartitionStatus {
	current := c.broadcaster.Version()
	statuses := make([]PartitionStatus, 0, len(c.partitions))
	for _, p := range models.AllPartitions() {
		status := PartitionStatus{Partition: p}
		if snap := c.Snapshot(p); snap != nil {
			fetchedAt := snap.FetchedAt
			status.Cards = len(snap.Cards)
			status.Version = snap.Version
			status.Fresh = snap.Version == current
			status.Source = snap.Source
			status.FetchedAt = &fetchedAt
			status.Generation = snap.Generation
		}
		statuses = append(statuses, status)
	}
	return statuses
}
