package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codyseavey/card-catalog/internal/models"
)

// fakeStore is an in-memory CatalogFetcher that counts calls and can be
// gated or made to fail.
type fakeStore struct {
	mu    sync.Mutex
	cards []models.Card
	err   error

	gate    chan struct{} // when set, FetchCatalog blocks until closed
	entered chan struct{} // receives once per call, if set

	calls atomic.Int32
}

func newFakeStore(cards ...models.Card) *fakeStore {
	return &fakeStore{cards: cards}
}

func (s *fakeStore) FetchCatalog(ctx context.Context, includeAlternates bool) ([]models.Card, error) {
	s.calls.Add(1)
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	// A new slice per call, like a real store round trip.
	out := make([]models.Card, 0, len(s.cards))
	for _, c := range s.cards {
		c.BaseID = models.BaseCardID(c.ID)
		c.IsAlternate = c.BaseID != c.ID
		if !includeAlternates && c.IsAlternate {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeStore) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func testCards() []models.Card {
	return []models.Card{
		{ID: "X-0001", Name: "Base", BanListRE: 3, BanListRL: 3, BanListLI: 3},
		{ID: "X-0001-01", Name: "Base", BanListRE: 3, BanListRL: 3, BanListLI: 3},
		{ID: "X-0001-02", Name: "Base", BanListRE: 3, BanListRL: 3, BanListLI: 3},
		{ID: "X-0002", Name: "Other", BanListRE: 2, BanListRL: 3, BanListLI: 3},
	}
}

func testFallback(t *testing.T) *FallbackCatalog {
	t.Helper()
	fc, err := NewFallbackCatalog("")
	if err != nil {
		t.Fatalf("failed to load bundled fallback catalog: %v", err)
	}
	return fc
}

func newTestCache(t *testing.T, store CatalogFetcher) (*CatalogCache, *Broadcaster) {
	t.Helper()
	b := NewBroadcaster()
	return NewCatalogCache(store, testFallback(t), b), b
}

func TestEnsureFresh_ConcurrentCallersShareOneFetch(t *testing.T) {
	store := newFakeStore(testCards()...)
	store.gate = make(chan struct{})
	store.entered = make(chan struct{}, 1)
	cache, _ := newTestCache(t, store)

	const callers = 25
	var wg sync.WaitGroup
	results := make([][]models.Card, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cards, err := cache.EnsureFresh(context.Background(), models.PartitionWithAlternates)
			if err != nil {
				t.Errorf("caller %d: unexpected error: %v", i, err)
			}
			results[i] = cards
		}(i)
	}

	<-store.entered
	// Give the remaining callers time to attach to the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(store.gate)
	wg.Wait()

	if calls := store.calls.Load(); calls != 1 {
		t.Fatalf("expected exactly 1 store fetch, got %d", calls)
	}
	for i, cards := range results {
		if len(cards) != 4 {
			t.Errorf("caller %d: expected 4 cards, got %d", i, len(cards))
		}
	}
}

func TestEnsureFresh_SecondReadIsCached(t *testing.T) {
	store := newFakeStore(testCards()...)
	cache, _ := newTestCache(t, store)

	first, err := cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls := store.calls.Load(); calls != 1 {
		t.Errorf("expected 1 store fetch, got %d", calls)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 base cards, got %d and %d", len(first), len(second))
	}
	if &first[0] != &second[0] {
		t.Error("expected the cached slice to be returned by reference")
	}
}

func TestEnsureFresh_PartitionsAreIndependent(t *testing.T) {
	store := newFakeStore(testCards()...)
	cache, _ := newTestCache(t, store)

	base, _ := cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	all, _ := cache.EnsureFresh(context.Background(), models.PartitionWithAlternates)

	if len(base) != 2 {
		t.Errorf("expected 2 base cards, got %d", len(base))
	}
	if len(all) != 4 {
		t.Errorf("expected 4 cards with alternates, got %d", len(all))
	}
	if calls := store.calls.Load(); calls != 2 {
		t.Errorf("expected one fetch per partition, got %d", calls)
	}
}

func TestEnsureFresh_RefetchAfterInvalidate(t *testing.T) {
	store := newFakeStore(testCards()...)
	cache, b := newTestCache(t, store)

	before, _ := cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	b.Invalidate()
	after, _ := cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)

	if calls := store.calls.Load(); calls != 2 {
		t.Fatalf("expected a refetch after invalidation, got %d fetches", calls)
	}
	if &before[0] == &after[0] {
		t.Error("expected a new slice after invalidation, got the pre-invalidation one")
	}

	snap := cache.Snapshot(models.PartitionBaseOnly)
	if snap.Version != b.Version() {
		t.Errorf("expected snapshot version %d, got %d", b.Version(), snap.Version)
	}
}

func TestEnsureFresh_InvalidateTwiceIsOneRefetch(t *testing.T) {
	store := newFakeStore(testCards()...)
	cache, b := newTestCache(t, store)

	cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	b.Invalidate()
	b.Invalidate()
	cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)

	if calls := store.calls.Load(); calls != 2 {
		t.Errorf("expected 2 fetches, got %d", calls)
	}
}

func TestEnsureFresh_StoreFailureServesFallback(t *testing.T) {
	store := newFakeStore()
	store.setErr(errors.New("connection refused"))
	cache, _ := newTestCache(t, store)

	cards, err := cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	if err != nil {
		t.Fatalf("store failures must not surface, got %v", err)
	}
	if len(cards) == 0 {
		t.Fatal("expected fallback cards")
	}
	for _, c := range cards {
		if c.IsAlternate {
			t.Errorf("base-only fallback contains alternate %s", c.ID)
		}
	}

	snap := cache.Snapshot(models.PartitionBaseOnly)
	if snap.Source != SourceFallback {
		t.Errorf("expected source %q, got %q", SourceFallback, snap.Source)
	}
	if !cache.Degraded() {
		t.Error("expected cache to report degraded")
	}

	// The fallback is stamped with the current version: no retry storm.
	cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	if calls := store.calls.Load(); calls != 1 {
		t.Errorf("expected no retry before invalidation, got %d fetches", calls)
	}
}

func TestEnsureFresh_RecoversAfterFailure(t *testing.T) {
	store := newFakeStore(testCards()...)
	store.setErr(errors.New("timeout"))
	cache, b := newTestCache(t, store)

	cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	store.setErr(nil)
	b.Invalidate()

	cards, err := cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 2 || cards[0].ID != "X-0001" {
		t.Errorf("expected store data after recovery, got %v", cards)
	}
	if cache.Degraded() {
		t.Error("expected degraded to clear after a successful fetch")
	}
	if src := cache.Snapshot(models.PartitionBaseOnly).Source; src != SourceStore {
		t.Errorf("expected source %q, got %q", SourceStore, src)
	}
}

func TestEnsureFresh_EmptyStoreServesFallback(t *testing.T) {
	store := newFakeStore()
	cache, _ := newTestCache(t, store)

	cards, _ := cache.EnsureFresh(context.Background(), models.PartitionWithAlternates)
	if len(cards) != testFallback(t).Count() {
		t.Errorf("expected %d fallback cards, got %d", testFallback(t).Count(), len(cards))
	}
}

func TestEnsureFresh_CallerCancelDoesNotFailSharedFetch(t *testing.T) {
	store := newFakeStore(testCards()...)
	store.gate = make(chan struct{})
	store.entered = make(chan struct{}, 1)
	cache, _ := newTestCache(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var cards []models.Card
	var err error
	go func() {
		defer close(done)
		cards, err = cache.EnsureFresh(ctx, models.PartitionBaseOnly)
	}()

	<-store.entered
	cancel()
	<-done

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(cards) == 0 {
		t.Error("expected best-available cards alongside the error")
	}

	close(store.gate)
	fresh, err := cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fresh) != 2 {
		t.Errorf("expected the shared fetch to complete with store data, got %d cards", len(fresh))
	}
	if calls := store.calls.Load(); calls != 1 {
		t.Errorf("expected the abandoned fetch to be reused, got %d fetches", calls)
	}
}

func TestGet_FallbackBeforeFirstFetch(t *testing.T) {
	store := newFakeStore(testCards()...)
	cache, _ := newTestCache(t, store)

	cards := cache.Get(models.PartitionBaseOnly)
	if len(cards) == 0 {
		t.Fatal("Get must never return an empty catalog")
	}
	if store.calls.Load() != 0 {
		t.Error("Get must not perform I/O")
	}

	cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	cards = cache.Get(models.PartitionBaseOnly)
	if len(cards) != 2 || cards[0].ID != "X-0001" {
		t.Errorf("expected cached store data from Get, got %v", cards)
	}
}

func TestGet_ReturnsStaleDataAfterInvalidate(t *testing.T) {
	store := newFakeStore(testCards()...)
	cache, b := newTestCache(t, store)

	cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	b.Invalidate()

	cards := cache.Get(models.PartitionBaseOnly)
	if len(cards) != 2 {
		t.Errorf("expected stale cached data until refetch, got %d cards", len(cards))
	}
	if store.calls.Load() != 1 {
		t.Error("Get must not refetch")
	}
}

func TestPublish_SupersededSnapshotDiscarded(t *testing.T) {
	cache, _ := newTestCache(t, newFakeStore())

	newer := &PartitionSnapshot{Version: 2, Generation: 10}
	older := &PartitionSnapshot{Version: 1, Generation: 11}

	cache.publish(models.PartitionBaseOnly, newer)
	cache.publish(models.PartitionBaseOnly, older)

	if got := cache.Snapshot(models.PartitionBaseOnly); got != newer {
		t.Errorf("expected version 2 snapshot to stay, got version %d", got.Version)
	}
}

func TestEnsureFresh_FetchOvertakenByInvalidation(t *testing.T) {
	store := newFakeStore(testCards()...)
	store.gate = make(chan struct{})
	store.entered = make(chan struct{}, 2)
	cache, b := newTestCache(t, store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	}()

	<-store.entered
	b.Invalidate()
	close(store.gate)
	<-done

	// The fetch started before the bump, so its data is stale on arrival.
	snap := cache.Snapshot(models.PartitionBaseOnly)
	if snap.Version != 0 {
		t.Errorf("expected snapshot stamped with start version 0, got %d", snap.Version)
	}

	cache.EnsureFresh(context.Background(), models.PartitionBaseOnly)
	if calls := store.calls.Load(); calls != 2 {
		t.Errorf("expected one extra fetch after the race, got %d", calls)
	}
}

func TestStatus(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := newFakeStore(testCards()...)
	b := NewBroadcaster()
	cache := NewCatalogCache(store, testFallback(t), b, WithClock(func() time.Time { return fixed }))

	cache.EnsureFresh(context.Background(), models.PartitionWithAlternates)

	statuses := cache.Status()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 partitions, got %d", len(statuses))
	}
	for _, s := range statuses {
		switch s.Partition {
		case models.PartitionBaseOnly:
			if s.FetchedAt != nil || s.Cards != 0 {
				t.Errorf("base-only was never fetched, got %+v", s)
			}
		case models.PartitionWithAlternates:
			if !s.Fresh || s.Cards != 4 || s.Source != SourceStore {
				t.Errorf("unexpected with-alternates status %+v", s)
			}
			if s.FetchedAt == nil || !s.FetchedAt.Equal(fixed) {
				t.Errorf("expected fetchedAt from injected clock, got %v", s.FetchedAt)
			}
		}
	}

	b.Invalidate()
	for _, s := range cache.Status() {
		if s.Partition == models.PartitionWithAlternates && s.Fresh {
			t.Error("expected partition to be stale after invalidation")
		}
	}
}

func TestEnsureFresh_UnknownPartition(t *testing.T) {
	cache, _ := newTestCache(t, newFakeStore())
	if _, err := cache.EnsureFreshSnapshot(context.Background(), models.Partition("bogus")); err == nil {
		t.Error("expected error for unknown partition")
	}
}
